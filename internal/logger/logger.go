// Package logger builds the zap logger shared by the server and storyconv.
package logger

import (
	"cmp"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and destination.
type Config struct {
	Level    string // debug, info, warn, error; info when empty or unknown
	Encoding string // "console" or json
	Output   string // file path, "stdout" or "stderr"; stdout when empty
	Service  string // tags every entry as "service" when set
}

// New builds the logger. An unknown level is not an error: the logger falls
// back to info and says so in its first entry.
func New(cfg Config) (*zap.Logger, error) {
	level, levelErr := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if levelErr != nil {
		level = zapcore.InfoLevel
	}

	sink, _, err := zap.Open(cmp.Or(cfg.Output, "stdout"))
	if err != nil {
		return nil, fmt.Errorf("failed to open log output %q: %w", cfg.Output, err)
	}

	log := zap.New(
		zapcore.NewCore(newEncoder(cfg.Encoding), sink, level),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
	)
	if cfg.Service != "" {
		log = log.With(zap.String("service", cfg.Service))
	}
	if levelErr != nil {
		log.Warn("Unknown log level, using info", zap.String("requested", cfg.Level))
	}
	return log, nil
}

func newEncoder(encoding string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if strings.EqualFold(encoding, "console") {
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}
