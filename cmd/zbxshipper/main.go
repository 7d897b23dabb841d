package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ash2k/stager/wait"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/atlassian/zbxshipper"
	"github.com/atlassian/zbxshipper/pkg/decode"
	"github.com/atlassian/zbxshipper/pkg/process"
	"github.com/atlassian/zbxshipper/pkg/sender"
	"github.com/atlassian/zbxshipper/pkg/util"
	"github.com/atlassian/zbxshipper/pkg/web"
)

const (
	// ParamVerbose enables verbose logging.
	ParamVerbose = "verbose"
	// ParamJSON makes logger log in JSON format.
	ParamJSON = "json"
	// ParamConfigPath provides file with configuration.
	ParamConfigPath = "config-path"
	// ParamVersion makes program output its version.
	ParamVersion = "version"
)

func main() {
	v, version, err := setupConfiguration(os.Args)
	if err != nil {
		if err == pflag.ErrHelp {
			return
		}
		logrus.Fatalf("Error while parsing configuration: %v", err)
	}
	if version {
		fmt.Printf("Version: %s - Commit: %s - Date: %s\n", GetVersion(), GitCommit, BuildDate)
		return
	}
	if err := run(v, os.Stdin); err != nil {
		logrus.Fatalf("%v", err)
	}
}

func run(v *viper.Viper, stdin io.Reader) error {
	logger := logrus.StandardLogger()
	spawner := process.NewExecSpawner(logger)
	defer spawner.Wait()

	shipper := sender.NewFromViper(v, spawner, logger)

	if v.GetString(zbxshipper.ParamHTTPAddr) != "" {
		return serve(v, logger, shipper)
	}
	return sendOnce(v, stdin, shipper)
}

// serve runs the HTTP ingest server until SIGINT or SIGTERM.
func serve(v *viper.Viper, logger logrus.FieldLogger, shipper zbxshipper.Shipper) error {
	server, err := web.NewHttpServerFromViper(v, logger, shipper)
	if err != nil {
		return err
	}

	ctx, cancelFunc := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelFunc()

	var runnables []zbxshipper.Runnable
	runnables = zbxshipper.MaybeAppendRunnable(runnables, server)

	var wg wait.Group
	for _, r := range runnables {
		wg.StartWithContext(ctx, r)
	}
	wg.Wait()
	return nil
}

// sendOnce ships a single document read from the configured input.
func sendOnce(v *viper.Viper, stdin io.Reader, shipper zbxshipper.Shipper) error {
	input := v.GetString(zbxshipper.ParamInput)
	format, err := decode.ResolveFormat(v.GetString(zbxshipper.ParamFormat), input)
	if err != nil {
		return err
	}

	r := stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	data, err := decode.Decode(format, r)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}

	var spawnErr error
	shipper.Send(data, func(err error) {
		spawnErr = err
	})
	return spawnErr
}

func setupConfiguration(args []string) (*viper.Viper, bool, error) {
	v := viper.New()
	defer setupLogger(v) // Apply logging configuration in case of early exit
	util.InitViper(v, "")

	var version bool

	cmd := pflag.NewFlagSet(args[0], pflag.ContinueOnError)

	cmd.BoolVar(&version, ParamVersion, false, "Print the version and exit")
	cmd.Bool(ParamVerbose, false, "Verbose")
	cmd.Bool(ParamJSON, false, "Log in JSON format")
	cmd.String(ParamConfigPath, "", "Path to the configuration file")

	zbxshipper.AddFlags(cmd)

	cmd.VisitAll(func(flag *pflag.Flag) {
		if err := v.BindPFlag(flag.Name, flag); err != nil {
			panic(err) // Should never happen
		}
	})

	if err := cmd.Parse(args[1:]); err != nil {
		return nil, false, err
	}

	configPath := v.GetString(ParamConfigPath)
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, false, err
		}
	}

	return v, version, nil
}

func setupLogger(v *viper.Viper) {
	if v.GetBool(ParamVerbose) {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if v.GetBool(ParamJSON) {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
