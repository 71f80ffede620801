package gelf

import (
	"context"
	"log/slog"
)

func ContextLogger(ctx context.Context) *slog.Logger {
	log := slog.Default()
	keys := []ContextKey{
		ContextKeyPipelineName,
		ContextKeyPluginType,
		ContextKeyPluginName,
	}
	for _, key := range keys {
		if value := ctx.Value(key); value != nil {
			log = log.With(string(key), value)
		}
	}
	return log
}

// DiagnosticLogger is the logger name on everything this library logs
// about itself. A Handler never forwards records carrying it, so a
// Handler installed as the slog default cannot feed on its own warnings.
const DiagnosticLogger = "gelf"

// DiagnosticKey is the attribute that carries the logger name.
const DiagnosticKey = "logger"

// Diagnostics is ContextLogger tagged as DiagnosticLogger.
func Diagnostics(ctx context.Context) *slog.Logger {
	return ContextLogger(ctx).With(DiagnosticKey, DiagnosticLogger)
}

type ContextKey string

const (
	// ContextKeyPipelineName is the name of a pipeline
	ContextKeyPipelineName ContextKey = "pipelineName"

	// ContextKeyPluginType is the kind of plugin (eg. "filter")
	ContextKeyPluginType ContextKey = "pluginType"

	// ContextKeyPluginName is the name of the plugin
	ContextKeyPluginName ContextKey = "pluginName"
)
