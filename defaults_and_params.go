package zbxshipper

import (
	"github.com/spf13/pflag"
)

const (
	// DefaultBin is the default sender executable, looked up on PATH.
	DefaultBin = "zabbix_sender"
	// DefaultHostname is the default host field of every metric. "-" makes the sender use the Hostname from its
	// own configuration file.
	DefaultHostname = "-"
	// DefaultInput is the default input of the one-shot mode, "-" being stdin.
	DefaultInput = "-"
	// DefaultFormat is the default input format.
	DefaultFormat = "auto"
)

const (
	// ParamSenderConfig is the name of parameter with the path of the sender configuration file.
	ParamSenderConfig = "sender-config"
	// ParamBin is the name of parameter with the sender executable.
	ParamBin = "bin"
	// ParamHostname is the name of parameter with the host field of every metric.
	ParamHostname = "hostname"
	// ParamPort is the name of parameter with the server port passed to the sender.
	ParamPort = "port"
	// ParamInput is the name of parameter with the file to read in one-shot mode.
	ParamInput = "input"
	// ParamFormat is the name of parameter with the input format.
	ParamFormat = "format"
	// ParamHTTPAddr is the name of parameter with the address of the HTTP ingest server.
	ParamHTTPAddr = "http-addr"
)

// AddFlags adds flags to the specified FlagSet.
func AddFlags(fs *pflag.FlagSet) {
	fs.String(ParamSenderConfig, "", "Path to the sender configuration file, passed through as --config")
	fs.String(ParamBin, DefaultBin, "Sender executable")
	fs.String(ParamHostname, DefaultHostname, "Host field of every metric")
	fs.Int(ParamPort, 0, "Server port passed to the sender as --port (0 to omit)")
	fs.String(ParamInput, DefaultInput, "File to read metrics from, - for stdin")
	fs.String(ParamFormat, DefaultFormat, "Input format: auto, json or yaml")
	fs.String(ParamHTTPAddr, "", "If set, serve the HTTP ingest API on this address instead of sending once")
}
