package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger. It defaults to JSON on stdout so packages can
// log before Init runs; Init replaces it with the configured instance.
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Config holds logging configuration.
type Config struct {
	// Level filters output: debug, info, warn, or error. Unknown values
	// fall back to info.
	Level string

	// JSONOutput selects machine-readable JSON lines over the
	// human-readable console format.
	JSONOutput bool

	// Output defaults to stdout.
	Output io.Writer
}

// Init configures the global logger.
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if !cfg.JSONOutput {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	Logger = zerolog.New(output).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with the component name.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithConn returns a child logger for one connection's lifecycle, tagged
// with its broker-assigned id and remote address.
func WithConn(connID uint64, remoteAddr string) zerolog.Logger {
	return Logger.With().
		Str("component", "conn").
		Uint64("conn_id", connID).
		Str("remote_addr", remoteAddr).
		Logger()
}
