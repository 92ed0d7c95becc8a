package newsdesk

import (
	"github.com/bushradio/newsdesk/internal/audit"
	"github.com/bushradio/newsdesk/internal/di"
	"github.com/bushradio/newsdesk/internal/metrics"
	"github.com/bushradio/newsdesk/internal/publish"
	"github.com/bushradio/newsdesk/internal/stories"
	"github.com/bushradio/newsdesk/internal/tasks"
	"github.com/bushradio/newsdesk/internal/translations"
)

// StoryService exports the story lifecycle contract for consumers of the package.
type StoryService = stories.Service

// TaskService exports the task orchestrator contract.
type TaskService = tasks.Service

// TranslationService exports the translation sub-workflow contract.
type TranslationService = translations.Service

// PublishCoordinator exports the group publish contract.
type PublishCoordinator = publish.Coordinator

// MetricsService exports the pipeline monitor contract.
type MetricsService = metrics.Service

// AuditRecorder exports the audit trail contract.
type AuditRecorder = audit.Recorder

// Module is the top level workflow engine façade.
type Module struct {
	container *di.Container
}

// New constructs the engine from the provided configuration and optional DI overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Stories returns the configured story service.
func (m *Module) Stories() StoryService {
	return m.container.Stories()
}

// Tasks returns the configured task orchestrator.
func (m *Module) Tasks() TaskService {
	return m.container.Tasks()
}

// Translations returns the configured translation service.
func (m *Module) Translations() TranslationService {
	return m.container.Translations()
}

// Publisher returns the configured group publish coordinator.
func (m *Module) Publisher() PublishCoordinator {
	return m.container.Publisher()
}

// Metrics returns the configured pipeline monitor.
func (m *Module) Metrics() MetricsService {
	return m.container.Metrics()
}

// Audit returns the shared audit trail.
func (m *Module) Audit() AuditRecorder {
	return m.container.Audit()
}

// Close releases resources the module owns, such as the database handle.
func (m *Module) Close() error {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Close()
}
