package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// RuntimeConfig configures the zerolog runtime logger used by the
// database, influx, and dispatcher adapters.
type RuntimeConfig struct {
	Level          string
	File           io.Writer
	GraylogEnabled bool
	GraylogAddress string
}

// parseZerologLevel converts a string log level to zerolog.Level.
func parseZerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "TRACE":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewRuntimeLogger builds the runtime zerolog logger: console with colors,
// console format without colors to file, and an optional GELF writer when
// Graylog is configured. Timestamps are UTC.
func NewRuntimeLogger(cfg RuntimeConfig) (zerolog.Logger, error) {
	zerolog.SetGlobalLevel(parseZerologLevel(cfg.Level))
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		},
	}
	if cfg.File != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        cfg.File,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}
	if cfg.GraylogEnabled && cfg.GraylogAddress != "" {
		gelfWriter, err := gelf.NewWriter(cfg.GraylogAddress)
		if err != nil {
			return zerolog.Logger{}, err
		}
		writers = append(writers, gelfWriter)
	}

	mlw := zerolog.MultiLevelWriter(writers...)
	logger := zerolog.New(mlw).With().Timestamp().Logger()
	return logger, nil
}

// NewTraceSampler derives a sampled trace logger from the runtime logger:
// max 5 entries per 10 seconds, then 1 in 100.
func NewTraceSampler(logger zerolog.Logger) zerolog.Logger {
	return logger.With().
		Bool("sampled", true).Logger().Sample(&zerolog.BurstSampler{
		Burst:       5,
		Period:      10 * time.Second,
		NextSampler: &zerolog.BasicSampler{N: 100},
	})
}
