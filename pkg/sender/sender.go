// Package sender ships data trees to a Zabbix server through the zabbix_sender executable.
//
// Every Send starts one sender process, writes one "<host> <key> <value>" line per leaf of the tree to its
// standard input and closes it. The process is not waited for; its failure to start is the only thing reported
// back, through the callback passed to Send.
package sender

import (
	"os/exec"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/atlassian/zbxshipper"
	"github.com/atlassian/zbxshipper/pkg/healthcheck"
	"github.com/atlassian/zbxshipper/pkg/pool"
	"github.com/atlassian/zbxshipper/pkg/process"
)

const (
	// DefaultBin is the default sender executable.
	DefaultBin = zbxshipper.DefaultBin
	// DefaultHostname is the default host field.
	DefaultHostname = zbxshipper.DefaultHostname
)

// Options configures a Shipper. Zero fields take their defaults, an empty Config and a zero Port are left out of
// the sender arguments.
type Options struct {
	Config   string // Sender configuration file, not read by the shipper
	Bin      string // Sender executable
	Hostname string // Host field of every metric
	Port     int    // Server port
}

func (o Options) withDefaults() Options {
	if o.Bin == "" {
		o.Bin = DefaultBin
	}
	if o.Hostname == "" {
		o.Hostname = DefaultHostname
	}
	return o
}

var writers = pool.NewWriter(pool.DefaultWriterSize)

// Shipper is the zbxshipper.Shipper that drives the sender executable. It holds no mutable state and is safe for
// concurrent use.
type Shipper struct {
	options Options
	args    []string
	spawner process.Spawner
}

var _ zbxshipper.Shipper = (*Shipper)(nil)

// NewFromViper constructs a Shipper using configuration provided by Viper.
func NewFromViper(v *viper.Viper, spawner process.Spawner, logger logrus.FieldLogger) *Shipper {
	v.SetDefault(zbxshipper.ParamBin, DefaultBin)
	v.SetDefault(zbxshipper.ParamHostname, DefaultHostname)
	v.SetDefault(zbxshipper.ParamPort, 0)
	return New(Options{
		Config:   v.GetString(zbxshipper.ParamSenderConfig),
		Bin:      v.GetString(zbxshipper.ParamBin),
		Hostname: v.GetString(zbxshipper.ParamHostname),
		Port:     v.GetInt(zbxshipper.ParamPort),
	}, spawner, logger)
}

// New constructs a Shipper.
func New(options Options, spawner process.Spawner, logger logrus.FieldLogger) *Shipper {
	options = options.withDefaults()
	s := &Shipper{
		options: options,
		args:    buildArgs(options),
		spawner: spawner,
	}

	logger.WithFields(logrus.Fields{
		"config":   options.Config,
		"bin":      options.Bin,
		"hostname": options.Hostname,
		"port":     options.Port,
	}).Info("created shipper")

	return s
}

func buildArgs(options Options) []string {
	args := make([]string, 0, 6)
	if options.Config != "" {
		args = append(args, "--config", options.Config)
	}
	if options.Port != 0 {
		args = append(args, "--port", strconv.Itoa(options.Port))
	}
	// "-" makes the sender read from stdin
	return append(args, "--input-file", "-")
}

// Options returns the resolved options.
func (s *Shipper) Options() Options {
	return s.options
}

// Args returns the arguments every sender process is started with.
func (s *Shipper) Args() []string {
	return append([]string(nil), s.args...)
}

// Send starts a sender process and writes the flattened data to it. onError is handed to the spawner untouched.
// Write and close errors on the process input are ignored.
func (s *Shipper) Send(data zbxshipper.Value, onError zbxshipper.ErrorCallback) {
	input := s.spawner.Spawn(s.options.Bin, s.Args(), onError)
	w := writers.Get(input)
	defer func() {
		_ = w.Flush()
		_ = input.Close()
		writers.Put(w)
	}()

	for _, m := range zbxshipper.Flatten(s.options.Hostname, data) {
		_, _ = w.WriteString(m.Host)
		_ = w.WriteByte(' ')
		_, _ = w.WriteString(m.Key)
		_ = w.WriteByte(' ')
		_, _ = w.WriteString(m.Value)
		_ = w.WriteByte('\n')
	}
}

// DeepChecks reports whether the sender executable can be found.
func (s *Shipper) DeepChecks() []healthcheck.HealthcheckFunc {
	return []healthcheck.HealthcheckFunc{s.checkBin}
}

func (s *Shipper) checkBin() (string, healthcheck.HealthyStatus) {
	path, err := exec.LookPath(s.options.Bin)
	if err != nil {
		return "sender executable: " + err.Error(), healthcheck.Unhealthy
	}
	return "sender executable: " + path, healthcheck.Healthy
}
