// Package config defines the command-line configuration surface for the
// gateway binary, parsed with github.com/alecthomas/kong.
package config

import "github.com/alecthomas/kong"

// Config holds every tunable the host loop and channel manager need.
// The default datagram buffer size is 512 bytes.
type Config struct {
	ListenAddr string `help:"UDP address to listen on." default:"0.0.0.0:7777"`
	MetricsAddr string `help:"HTTP address to serve Prometheus metrics on." default:"0.0.0.0:9090"`

	MaxSessions           int   `help:"Maximum concurrent channels, authenticated plus unauthenticated." default:"2000"`
	RecencyLimit          int   `help:"Sequence recency window width for reorder/ack acceptance." default:"256"`
	RetransmitIntervalMs  int64 `help:"Milliseconds before an unacknowledged sequenced packet is resent." default:"1500"`
	DefaultBufferSize     int   `help:"Default datagram buffer size in bytes." default:"512"`
	DefaultCrcSize        int   `help:"Default truncated CRC footer size in bytes." default:"3"`
	CompressionThreshold  int   `help:"Payload size above which zlib compression is attempted." default:"100"`
	IdleTimeoutMs         int64 `help:"Milliseconds of no inbound traffic before a channel is disconnected with Timeout. 0 disables the idle sweep." default:"60000"`

	Workers  int    `help:"Number of worker goroutines draining the channel work queue." default:"8"`
	LogLevel string `help:"Log level: debug, info, warn, error." default:"info"`
}

// Parse parses args (via kong) into a Config. kong's built-in -h/--help
// prints usage and exits the process; a parse error is returned to the
// caller.
func Parse(args []string) (*Config, error) {
	var cfg Config
	parser, err := kong.New(&cfg, kong.Name("soegateway"), kong.Description("SOE-family reliable UDP channel gateway."))
	if err != nil {
		return nil, err
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, err
	}
	return &cfg, nil
}
