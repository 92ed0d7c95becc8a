package logging

import (
	"context"

	"github.com/bushradio/newsdesk/pkg/interfaces"
)

const (
	rootModule         = "newsdesk"
	storiesModule      = "newsdesk.stories"
	tasksModule        = "newsdesk.tasks"
	translationsModule = "newsdesk.translations"
	publishModule      = "newsdesk.publish"
	metricsModule      = "newsdesk.metrics"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The returned logger attaches
// the module identifier as structured context so downstream entries can be
// filtered predictably.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	if fieldsLogger, ok := logger.(interfaces.FieldsLogger); ok {
		return fieldsLogger.WithFields(map[string]any{
			"module": module,
		})
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// StoriesLogger returns the logger namespace reserved for the story service.
func StoriesLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, storiesModule)
}

// TasksLogger returns the logger namespace reserved for the task orchestrator.
func TasksLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, tasksModule)
}

// TranslationsLogger returns the logger namespace reserved for the translation workflow.
func TranslationsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, translationsModule)
}

// PublishLogger returns the logger namespace reserved for the publish coordinator.
func PublishLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, publishModule)
}

// MetricsLogger returns the logger namespace reserved for the SLA monitor.
func MetricsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, metricsModule)
}

// NoOp returns a logger that drops every log entry. It satisfies the Logger
// contract so services can safely operate when logging is disabled.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
