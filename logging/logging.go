// Package logging configures logrus and carries correlation ids through
// request contexts.
package logging

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type contextKey string

// CorrelationIDKey is the context key holding the correlation id.
const CorrelationIDKey contextKey = "correlation_id"

// Field names shared across the code base.
const (
	FieldCorrelationID = "correlation_id"
	FieldRunID         = "run_id"
	FieldComponent     = "component"
)

// New builds a logger writing to out with the given level and format. An
// unknown level falls back to info with a warning; an unknown format is an
// error.
func New(out io.Writer, level, format string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)

	switch format {
	case "", FormatText:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("invalid log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return logger, nil
}

// Discard returns a logger that drops everything, for tests and quiet runs.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// WithCorrelationID stores a new correlation id in the context.
func WithCorrelationID(ctx context.Context) (context.Context, string) {
	correlationID := uuid.New().String()
	return context.WithValue(ctx, CorrelationIDKey, correlationID), correlationID
}

// GetCorrelationID returns the correlation id of the context, if any.
func GetCorrelationID(ctx context.Context) string {
	if correlationID, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return correlationID
	}
	return ""
}

// FromContext decorates base with the correlation id of ctx.
func FromContext(ctx context.Context, base logrus.FieldLogger) logrus.FieldLogger {
	if base == nil {
		base = logrus.StandardLogger()
	}
	if ctx == nil {
		return base
	}
	if id := GetCorrelationID(ctx); id != "" {
		return base.WithField(FieldCorrelationID, id)
	}
	return base
}
