package di

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bushradio/newsdesk/internal/audit"
	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/logging"
	"github.com/bushradio/newsdesk/internal/logging/gologger"
	"github.com/bushradio/newsdesk/internal/metrics"
	"github.com/bushradio/newsdesk/internal/publish"
	"github.com/bushradio/newsdesk/internal/runtimeconfig"
	"github.com/bushradio/newsdesk/internal/storage"
	"github.com/bushradio/newsdesk/internal/stories"
	"github.com/bushradio/newsdesk/internal/tasks"
	"github.com/bushradio/newsdesk/internal/translations"
	"github.com/bushradio/newsdesk/internal/workflow"
	"github.com/bushradio/newsdesk/pkg/interfaces"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

// Container wires the workflow engine: repositories, the stage machine, the
// orchestrator, the translation sub-workflow, the publish coordinator and the
// pipeline monitor, all sharing one audit trail and logger provider.
type Container struct {
	cfg runtimeconfig.Config

	provider interfaces.LoggerProvider

	db       *bun.DB
	ownsDB   bool
	cacheSvc cache.CacheService
	keySer   cache.KeySerializer

	clock     func() time.Time
	directory tasks.Directory
	recorder  audit.Recorder

	storyRepo      stories.Repository
	taskRepo       tasks.Repository
	assignmentRepo translations.Repository

	storySvc       stories.Service
	taskSvc        tasks.Service
	translationSvc translations.Service
	coordinator    publish.Coordinator
	monitor        metrics.Service
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithBunDB supplies an existing database handle instead of letting the
// container open one from the configuration.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.db = db
	}
}

// WithCache enables read-through caching on the bun repositories.
func WithCache(service cache.CacheService, serializer cache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheSvc = service
		c.keySer = serializer
	}
}

// WithLoggerProvider overrides the default go-logger provider.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.provider = provider
	}
}

// WithDirectory supplies the staff directory used for task assignment.
func WithDirectory(directory tasks.Directory) Option {
	return func(c *Container) {
		if directory != nil {
			c.directory = directory
		}
	}
}

// WithAuditRecorder overrides the audit trail sink.
func WithAuditRecorder(recorder audit.Recorder) Option {
	return func(c *Container) {
		if recorder != nil {
			c.recorder = recorder
		}
	}
}

// WithClock overrides the clock shared by every service.
func WithClock(clock func() time.Time) Option {
	return func(c *Container) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// openerProxy defers the stories -> tasks hook until both services exist.
// Story creation notifies the orchestrator, and the orchestrator drives the
// story service, so one side has to be wired after construction.
type openerProxy struct {
	inner stories.TaskOpener
}

func (p *openerProxy) StoryCreated(ctx context.Context, story *stories.Story) error {
	if p.inner == nil {
		return nil
	}
	return p.inner.StoryCreated(ctx, story)
}

func (p *openerProxy) StoryAdvanced(ctx context.Context, story *stories.Story, actorID uuid.UUID) error {
	if p.inner == nil {
		return nil
	}
	return p.inner.StoryAdvanced(ctx, story, actorID)
}

// guardProxy defers the stories -> translations deletion guard the same way.
type guardProxy struct {
	inner stories.AssignmentGuard
}

func (p *guardProxy) HasActiveAssignments(ctx context.Context, storyID uuid.UUID) (bool, error) {
	if p.inner == nil {
		return false, nil
	}
	return p.inner.HasActiveAssignments(ctx, storyID)
}

// cancellerProxy defers the publish -> tasks cancellation hook: the
// coordinator is built before the orchestrator because the orchestrator
// delegates publish completions to it.
type cancellerProxy struct {
	inner publish.TaskCanceller
}

func (p *cancellerProxy) CancelOpenForContent(ctx context.Context, contentID uuid.UUID, taskType tasks.Type, actorID uuid.UUID) error {
	if p.inner == nil {
		return nil
	}
	return p.inner.CancelOpenForContent(ctx, contentID, taskType, actorID)
}

// releaseAdapter lets the orchestrator hand publish-task completions to the
// coordinator's atomic group release.
type releaseAdapter struct {
	coordinator publish.Coordinator
}

func (r *releaseAdapter) Release(ctx context.Context, originalID, actorID uuid.UUID, actorRole domain.Role) error {
	_, err := r.coordinator.PublishGroup(ctx, publish.Request{
		OriginalID: originalID,
		ActorID:    actorID,
		ActorRole:  actorRole,
	})
	return err
}

// New assembles the engine from the supplied configuration. An empty database
// driver wires in-memory repositories; "sqlite" opens (and owns) a sqlite
// handle and creates the schema on the fly.
func New(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		cfg:       cfg,
		clock:     time.Now,
		directory: tasks.NewMemoryDirectory(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.provider == nil {
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			AddSource: cfg.Logging.AddSource,
			Focus:     cfg.Logging.Focus,
		})
		if err != nil {
			return nil, err
		}
		c.provider = provider
	}

	if err := c.buildStorage(); err != nil {
		return nil, err
	}
	c.buildServices()
	return c, nil
}

func (c *Container) buildStorage() error {
	driver := strings.ToLower(strings.TrimSpace(c.cfg.Database.Driver))

	if c.db == nil {
		switch driver {
		case "", "memory":
		case "sqlite", "sqlite3":
			dsn := c.cfg.Database.DSN
			if dsn == "" {
				dsn = "file::memory:?cache=shared"
			}
			sqlDB, err := sql.Open("sqlite3", dsn)
			if err != nil {
				return fmt.Errorf("di: open sqlite database: %w", err)
			}
			c.db = bun.NewDB(sqlDB, sqlitedialect.New())
			c.ownsDB = true
			if err := bootstrapSchema(context.Background(), c.db); err != nil {
				c.db.Close()
				c.db = nil
				return err
			}
		default:
			return fmt.Errorf("di: unknown database driver %q", c.cfg.Database.Driver)
		}
	}

	if c.db != nil {
		c.storyRepo = stories.NewBunRepositoryWithCache(c.db, c.cacheSvc, c.keySer)
		c.taskRepo = tasks.NewBunRepositoryWithCache(c.db, c.cacheSvc, c.keySer)
		c.assignmentRepo = translations.NewBunRepositoryWithCache(c.db, c.cacheSvc, c.keySer)
		if c.recorder == nil {
			c.recorder = audit.NewBunRecorder(c.db)
		}
		return nil
	}

	c.storyRepo = stories.NewMemoryRepository()
	c.taskRepo = tasks.NewMemoryRepository()
	c.assignmentRepo = translations.NewMemoryRepository()
	if c.recorder == nil {
		c.recorder = audit.NewInMemoryRecorder()
	}
	return nil
}

func (c *Container) buildServices() {
	opener := &openerProxy{}
	guard := &guardProxy{}

	engine := workflow.New(workflow.WithClock(c.clock))

	c.storySvc = stories.NewService(c.storyRepo, engine, c.recorder,
		stories.WithClock(c.clock),
		stories.WithTaskOpener(opener),
		stories.WithAssignmentGuard(guard),
		stories.WithLogger(c.moduleLogger("stories")),
	)

	c.translationSvc = translations.NewService(c.assignmentRepo, c.storyRepo, c.storySvc, c.recorder,
		translations.WithClock(c.clock),
		translations.WithLogger(c.moduleLogger("translations")),
	)
	guard.inner = c.translationSvc

	canceller := &cancellerProxy{}
	c.coordinator = publish.NewCoordinator(c.storyRepo, c.translationSvc, c.recorder,
		publish.WithClock(c.clock),
		publish.WithTaskCanceller(canceller),
		publish.WithLogger(c.moduleLogger("publish")),
	)

	taskOpts := []tasks.ServiceOption{
		tasks.WithClock(c.clock),
		tasks.WithLogger(c.moduleLogger("tasks")),
		tasks.WithReleaser(&releaseAdapter{coordinator: c.coordinator}),
	}
	if c.cfg.Assignment.Policy == runtimeconfig.PolicyRoundRobin {
		taskOpts = append(taskOpts, tasks.WithAssignmentPolicy(&tasks.RoundRobinPolicy{}))
	}
	if c.db != nil {
		taskOpts = append(taskOpts, tasks.WithUnitOfWork(storage.NewUnitOfWork(c.db)))
	}
	c.taskSvc = tasks.NewService(c.taskRepo, c.storySvc, c.directory, c.recorder, taskOpts...)
	opener.inner = c.taskSvc
	canceller.inner = c.taskSvc

	c.monitor = metrics.NewMonitor(c.storyRepo, c.cfg.StageThresholds(),
		metrics.WithClock(c.clock),
		metrics.WithLogger(c.moduleLogger("metrics")),
	)
}

func (c *Container) moduleLogger(name string) interfaces.Logger {
	return logging.ModuleLogger(c.provider, "newsdesk."+name)
}

// bootstrapSchema creates the engine tables when they do not exist yet.
func bootstrapSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*stories.Story)(nil),
		(*translations.Assignment)(nil),
		(*tasks.Task)(nil),
		(*audit.Entry)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("di: create table for %T: %w", model, err)
		}
	}
	return nil
}

// Stories exposes the story lifecycle service.
func (c *Container) Stories() stories.Service { return c.storySvc }

// Tasks exposes the task orchestrator.
func (c *Container) Tasks() tasks.Service { return c.taskSvc }

// Translations exposes the translation sub-workflow service.
func (c *Container) Translations() translations.Service { return c.translationSvc }

// Publisher exposes the group publish coordinator.
func (c *Container) Publisher() publish.Coordinator { return c.coordinator }

// Metrics exposes the pipeline monitor.
func (c *Container) Metrics() metrics.Service { return c.monitor }

// Audit exposes the shared audit trail.
func (c *Container) Audit() audit.Recorder { return c.recorder }

// Directory exposes the staff directory used for assignment.
func (c *Container) Directory() tasks.Directory { return c.directory }

// Logger returns a module logger from the container's provider.
func (c *Container) Logger(name string) interfaces.Logger {
	return logging.ModuleLogger(c.provider, name)
}

// DB exposes the database handle when a persistent backend is configured.
func (c *Container) DB() *bun.DB { return c.db }

// Close releases the database handle if the container opened it.
func (c *Container) Close() error {
	if c.ownsDB && c.db != nil {
		return c.db.Close()
	}
	return nil
}
