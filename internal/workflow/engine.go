package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/roles"
	"github.com/google/uuid"
)

var (
	// ErrUnknownEntityType indicates no workflow definition exists for the requested entity.
	ErrUnknownEntityType = errors.New("workflow: entity type not registered")
	// ErrInvalidTransition indicates the requested transition is not allowed from the current stage.
	ErrInvalidTransition = errors.New("workflow: transition not allowed")
	// ErrAlreadyTerminal indicates the entity reached a terminal stage.
	ErrAlreadyTerminal = errors.New("workflow: entity is in a terminal stage")
	// ErrMissingTransition indicates no transition name was supplied.
	ErrMissingTransition = errors.New("workflow: transition name required")
	// ErrInternalTransition indicates an actor requested an engine-internal edge.
	ErrInternalTransition = errors.New("workflow: transition is not actor-invocable")
	// ErrNilItemID signals input validation failure.
	ErrNilItemID = errors.New("workflow: item id required")
)

// TransitionInput captures the data required to run a workflow transition.
type TransitionInput struct {
	ItemID       uuid.UUID
	EntityType   string
	CurrentStage domain.Stage
	Transition   string
	ActorID      uuid.UUID
	ActorRole    domain.Role
	// System marks engine-internal invocations (derived transitions);
	// these bypass the role gate but are rejected for external callers.
	System   bool
	Metadata map[string]any
}

// TransitionResult describes the outcome of a validated transition.
type TransitionResult struct {
	ItemID      uuid.UUID
	EntityType  string
	Transition  string
	FromStage   domain.Stage
	ToStage     domain.Stage
	CompletedAt time.Time
	ActorID     uuid.UUID
	Metadata    map[string]any
}

// Engine validates lifecycle transitions against compiled definitions. It is
// purely computational: persisting the resulting stage is the caller's job,
// under an optimistic check on the stage the result was computed from.
type Engine struct {
	mu          sync.RWMutex
	definitions map[string]*compiledDefinition
	now         func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithClock overrides the clock used for transition timestamps (primarily for testing).
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.now = clock
		}
	}
}

// New constructs an engine seeded with the story lifecycle.
func New(opts ...Option) *Engine {
	engine := &Engine{
		definitions: make(map[string]*compiledDefinition),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(engine)
	}

	engine.Register(StoryDefinition())

	return engine
}

// Register installs or replaces a definition for its entity type.
func (e *Engine) Register(definition Definition) {
	compiled := compile(definition)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.definitions[definition.EntityType] = compiled
}

// Transition validates the named transition for the entity and returns the
// resulting stage. It fails with ErrInvalidTransition on a source-stage
// mismatch and a roles.ForbiddenError when the actor lacks authority; it has
// no side effects on failure.
func (e *Engine) Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	if input.ItemID == uuid.Nil {
		return nil, ErrNilItemID
	}

	definition, err := e.definitionFor(input.EntityType)
	if err != nil {
		return nil, err
	}

	current := input.CurrentStage
	if strings.TrimSpace(string(current)) == "" {
		current = definition.definition.InitialStage
	}
	if current.Terminal() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyTerminal, current)
	}

	name := strings.TrimSpace(strings.ToLower(input.Transition))
	if name == "" {
		return nil, ErrMissingTransition
	}

	transition, err := definition.lookup(name, current)
	if err != nil {
		return nil, err
	}

	if transition.Internal {
		if !input.System {
			return nil, fmt.Errorf("%w: %s", ErrInternalTransition, transition.Name)
		}
	} else if err := roles.Require(input.ActorRole, transition.Action); err != nil {
		return nil, err
	}

	return &TransitionResult{
		ItemID:      input.ItemID,
		EntityType:  definition.definition.EntityType,
		Transition:  transition.Name,
		FromStage:   current,
		ToStage:     transition.To,
		CompletedAt: e.now(),
		ActorID:     input.ActorID,
		Metadata:    cloneMetadata(input.Metadata),
	}, nil
}

// AvailableTransitions lists the actor-invocable transitions from the stage.
func (e *Engine) AvailableTransitions(ctx context.Context, entityType string, stage domain.Stage) ([]Transition, error) {
	definition, err := e.definitionFor(entityType)
	if err != nil {
		return nil, err
	}
	transitions := definition.byStage[stage]
	out := make([]Transition, 0, len(transitions))
	for _, transition := range transitions {
		if transition.Internal {
			continue
		}
		out = append(out, transition)
	}
	return out, nil
}

func (e *Engine) definitionFor(entityType string) (*compiledDefinition, error) {
	key := strings.TrimSpace(strings.ToLower(entityType))
	if key == "" {
		key = EntityTypeStory
	}
	e.mu.RLock()
	definition, ok := e.definitions[key]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntityType, entityType)
	}
	return definition, nil
}

type compiledDefinition struct {
	definition  Definition
	transitions map[string]Transition
	byStage     map[domain.Stage][]Transition
}

func compile(definition Definition) *compiledDefinition {
	compiled := &compiledDefinition{
		definition:  definition,
		transitions: make(map[string]Transition, len(definition.Transitions)),
		byStage:     make(map[domain.Stage][]Transition),
	}
	for _, transition := range definition.Transitions {
		compiled.transitions[transitionKey(transition.Name, transition.From)] = transition
		compiled.byStage[transition.From] = append(compiled.byStage[transition.From], transition)
	}
	return compiled
}

func (d *compiledDefinition) lookup(name string, stage domain.Stage) (Transition, error) {
	transition, ok := d.transitions[transitionKey(name, stage)]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, name, stage)
	}
	return transition, nil
}

func transitionKey(name string, from domain.Stage) string {
	return strings.TrimSpace(strings.ToLower(name)) + "::" + string(from)
}

func cloneMetadata(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}
	clone := make(map[string]any, len(input))
	for k, v := range input {
		clone[k] = v
	}
	return clone
}
