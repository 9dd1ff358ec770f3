package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
)

const (
	JSON = "json"
	Text = "text"
	Tint = "tint"
)

// Initialize installs the default slog logger writing to w. Logs go to w
// rather than stdout so the validator report printed on stdout stays clean.
func Initialize(loggingType string, logLevelName string, w io.Writer) error {
	handler, err := NewHandler(loggingType, logLevelName, w)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(handler))
	slog.Debug("logging initialized", "type", loggingType, "logLevel", logLevelName)
	return nil
}

// NewHandler builds the slog handler for a logging type and level name.
func NewHandler(loggingType string, logLevelName string, w io.Writer) (slog.Handler, error) {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(logLevelName)); err != nil {
		return nil, fmt.Errorf("could not parse log level: %w", err)
	}

	opts := slog.HandlerOptions{
		AddSource: logLevel <= slog.LevelDebug,
		Level:     logLevel,
	}

	switch loggingType {
	case JSON:
		return slog.NewJSONHandler(w, &opts), nil
	case Text:
		return slog.NewTextHandler(w, &opts), nil
	case Tint:
		return tint.NewHandler(w, &tint.Options{
			AddSource: opts.AddSource,
			Level:     opts.Level,
		}), nil
	default:
		return nil, fmt.Errorf("unknown logging type: %s", loggingType)
	}
}
