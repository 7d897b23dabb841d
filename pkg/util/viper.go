package util

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of the inspected environment variables.
const EnvPrefix = "ZBX"

// GetSubViper returns the named section of v, or an empty viper if the section is absent. Either way the result
// reads <EnvPrefix>_<KEY>_<VAR> environment variables.
func GetSubViper(v *viper.Viper, key string) *viper.Viper {
	n := v.Sub(key)
	if n == nil {
		n = viper.New()
	}
	InitViper(n, key)
	return n
}

// InitViper sets up env var handling for a viper. Sub vipers do not inherit these settings, so every one of them
// has to go through here.
func InitViper(v *viper.Viper, subViperName string) {
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	if subViperName != "" {
		v.SetEnvPrefix(EnvPrefix + "_" + strings.ToUpper(strings.Replace(subViperName, ".", "_", -1)))
	} else {
		v.SetEnvPrefix(EnvPrefix)
	}
	v.SetTypeByDefaultValue(true)
	v.AutomaticEnv()
}
