package metrics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/logging"
	"github.com/bushradio/newsdesk/internal/stories"
	"github.com/bushradio/newsdesk/pkg/interfaces"
	"github.com/google/uuid"
)

// StageMetrics aggregates the items currently dwelling in one stage.
type StageMetrics struct {
	Stage       domain.Stage  `json:"stage"`
	Count       int           `json:"count"`
	OldestDwell time.Duration `json:"oldest_dwell"`
	MeanDwell   time.Duration `json:"mean_dwell"`
	Overdue     int           `json:"overdue"`
}

// PipelineReport is one snapshot of every non-terminal stage.
type PipelineReport struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Stages      []StageMetrics `json:"stages"`
	// Malformed counts records whose timestamps could not be trusted;
	// they are excluded from dwell averages rather than skewing them.
	Malformed int `json:"malformed"`
}

// WorkloadEntry reports one user's open review or approval load.
type WorkloadEntry struct {
	UserID         uuid.UUID     `json:"user_id"`
	Count          int           `json:"count"`
	OldestAssigned time.Duration `json:"oldest_assigned"`
}

// HealthReport is the coarse pulse of the whole pipeline.
type HealthReport struct {
	PipelineTotal     int          `json:"pipeline_total"`
	PublishedToday    int          `json:"published_today"`
	PublishedThisWeek int          `json:"published_this_week"`
	ThroughputMonth   int          `json:"throughput_month"`
	Bottleneck        domain.Stage `json:"bottleneck"`
}

// Service computes pipeline metrics and SLA accounting.
type Service interface {
	PipelineMetrics(ctx context.Context) (*PipelineReport, error)
	ReviewerWorkload(ctx context.Context, tier domain.Role) ([]WorkloadEntry, error)
	WorkflowHealth(ctx context.Context) (*HealthReport, error)
}

// Option configures the monitor at construction time.
type Option func(*monitor)

// WithClock overrides the clock dwell times are measured against.
func WithClock(clock func() time.Time) Option {
	return func(m *monitor) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithLogger attaches a logger to the monitor.
func WithLogger(logger interfaces.Logger) Option {
	return func(m *monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

type monitor struct {
	items      stories.Repository
	thresholds map[domain.Stage]time.Duration
	logger     interfaces.Logger
	now        func() time.Time
}

// NewMonitor constructs the SLA monitor with the injected per-stage dwell windows.
func NewMonitor(items stories.Repository, thresholds map[domain.Stage]time.Duration, opts ...Option) Service {
	m := &monitor{
		items:      items,
		thresholds: thresholds,
		logger:     logging.NoOp(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PipelineMetrics groups one full scan of the non-published originals in
// memory. A single read feeds every stage bucket; per-stage queries are
// deliberately avoided.
func (m *monitor) PipelineMetrics(ctx context.Context) (*PipelineReport, error) {
	items, err := m.items.ListPipeline(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now()
	type bucket struct {
		count   int
		total   time.Duration
		oldest  time.Duration
		overdue int
	}
	buckets := make(map[domain.Stage]*bucket, len(domain.Stages()))
	malformed := 0

	for _, item := range items {
		if item.UpdatedAt.IsZero() || item.UpdatedAt.After(now) {
			malformed++
			continue
		}
		dwell := now.Sub(item.UpdatedAt)

		b := buckets[item.Stage]
		if b == nil {
			b = &bucket{}
			buckets[item.Stage] = b
		}
		b.count++
		b.total += dwell
		if dwell > b.oldest {
			b.oldest = dwell
		}
		if threshold, ok := m.thresholds[item.Stage]; ok && dwell > threshold {
			b.overdue++
		}
	}

	report := &PipelineReport{GeneratedAt: now, Malformed: malformed}
	for _, stage := range domain.Stages() {
		if stage.Terminal() {
			continue
		}
		entry := StageMetrics{Stage: stage}
		if b := buckets[stage]; b != nil {
			entry.Count = b.count
			entry.OldestDwell = b.oldest
			entry.MeanDwell = b.total / time.Duration(b.count)
			entry.Overdue = b.overdue
		}
		report.Stages = append(report.Stages, entry)
	}
	return report, nil
}

// ReviewerWorkload counts each user's currently-assigned items in the stage
// matching the tier, sorted descending by load.
func (m *monitor) ReviewerWorkload(ctx context.Context, tier domain.Role) ([]WorkloadEntry, error) {
	var (
		stage    domain.Stage
		assignee func(*stories.Story) *uuid.UUID
	)
	switch {
	case tier == domain.RoleJournalist:
		stage = domain.StageNeedsJournalistReview
		assignee = func(s *stories.Story) *uuid.UUID { return s.AssignedReviewerID }
	case tier.AtLeast(domain.RoleSubEditor):
		stage = domain.StageNeedsSubEditorApproval
		assignee = func(s *stories.Story) *uuid.UUID { return s.AssignedApproverID }
	default:
		return nil, nil
	}

	items, err := m.items.ListPipeline(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now()
	loads := make(map[uuid.UUID]*WorkloadEntry)
	for _, item := range items {
		if item.Stage != stage {
			continue
		}
		owner := assignee(item)
		if owner == nil {
			continue
		}
		entry := loads[*owner]
		if entry == nil {
			entry = &WorkloadEntry{UserID: *owner}
			loads[*owner] = entry
		}
		entry.Count++
		if !item.UpdatedAt.IsZero() && !item.UpdatedAt.After(now) {
			if dwell := now.Sub(item.UpdatedAt); dwell > entry.OldestAssigned {
				entry.OldestAssigned = dwell
			}
		}
	}

	out := make([]WorkloadEntry, 0, len(loads))
	for _, entry := range loads {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out, nil
}

// WorkflowHealth merges independent sub-counts computed concurrently: the
// pipeline snapshot and the published-item tallies read disjoint rows.
func (m *monitor) WorkflowHealth(ctx context.Context) (*HealthReport, error) {
	var (
		wg           sync.WaitGroup
		pipeline     *PipelineReport
		pipelineErr  error
		published    []*stories.Story
		publishedErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		pipeline, pipelineErr = m.PipelineMetrics(ctx)
	}()
	go func() {
		defer wg.Done()
		all, err := m.items.List(ctx)
		if err != nil {
			publishedErr = err
			return
		}
		for _, item := range all {
			if item.Stage == domain.StagePublished && !item.IsTranslation {
				published = append(published, item)
			}
		}
	}()
	wg.Wait()

	if pipelineErr != nil {
		return nil, pipelineErr
	}
	if publishedErr != nil {
		return nil, publishedErr
	}

	now := m.now()
	dayStart := now.Truncate(24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)

	report := &HealthReport{}
	for _, stage := range pipeline.Stages {
		report.PipelineTotal += stage.Count
	}
	for _, item := range published {
		if item.PublishedAt == nil {
			continue
		}
		at := *item.PublishedAt
		if !at.Before(dayStart) {
			report.PublishedToday++
		}
		if at.After(weekAgo) {
			report.PublishedThisWeek++
		}
		if at.After(monthAgo) {
			report.ThroughputMonth++
		}
	}

	// The bottleneck is the stage holding the most items, with mean dwell
	// as the tiebreak.
	var worst StageMetrics
	for _, stage := range pipeline.Stages {
		if stage.Count > worst.Count ||
			(stage.Count == worst.Count && stage.MeanDwell > worst.MeanDwell) {
			worst = stage
		}
	}
	report.Bottleneck = worst.Stage

	return report, nil
}
