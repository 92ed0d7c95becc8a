package runtimeconfig

import (
	"fmt"
	"time"

	"github.com/bushradio/newsdesk/internal/domain"
)

// Assignment policy names accepted by Config.Assignment.Policy.
const (
	PolicyLeastLoaded = "least_loaded"
	PolicyRoundRobin  = "round_robin"
)

// Config carries the runtime settings of the workflow engine. Zero values
// are filled in by Normalize, so a literal Config{} is usable.
type Config struct {
	Logging    LoggingConfig
	Database   DatabaseConfig
	SLA        SLAConfig
	Assignment AssignmentConfig
}

// LoggingConfig mirrors the options of the go-logger provider.
type LoggingConfig struct {
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// DatabaseConfig selects the storage backend. An empty driver runs the
// engine on in-memory repositories.
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// SLAConfig sets the dwell window allowed per pipeline stage before an item
// counts as overdue.
type SLAConfig struct {
	Draft      time.Duration
	Review     time.Duration
	Approval   time.Duration
	Approved   time.Duration
	Translated time.Duration
}

// AssignmentConfig selects the task assignee selection strategy.
type AssignmentConfig struct {
	Policy string
}

// Normalize fills unset fields with operational defaults.
func (c *Config) Normalize() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.SLA.Draft == 0 {
		c.SLA.Draft = 7 * 24 * time.Hour
	}
	if c.SLA.Review == 0 {
		c.SLA.Review = 2 * 24 * time.Hour
	}
	if c.SLA.Approval == 0 {
		c.SLA.Approval = 2 * 24 * time.Hour
	}
	if c.SLA.Approved == 0 {
		c.SLA.Approved = 7 * 24 * time.Hour
	}
	if c.SLA.Translated == 0 {
		c.SLA.Translated = 24 * time.Hour
	}
	if c.Assignment.Policy == "" {
		c.Assignment.Policy = PolicyLeastLoaded
	}
}

// Validate rejects settings Normalize cannot repair.
func (c *Config) Validate() error {
	switch c.Assignment.Policy {
	case "", PolicyLeastLoaded, PolicyRoundRobin:
	default:
		return fmt.Errorf("runtimeconfig: unknown assignment policy %q", c.Assignment.Policy)
	}
	return nil
}

// StageThresholds returns the per-stage dwell windows keyed by stage.
func (c *Config) StageThresholds() map[domain.Stage]time.Duration {
	return map[domain.Stage]time.Duration{
		domain.StageDraft:                  c.SLA.Draft,
		domain.StageNeedsJournalistReview:  c.SLA.Review,
		domain.StageNeedsSubEditorApproval: c.SLA.Approval,
		domain.StageApproved:               c.SLA.Approved,
		domain.StageTranslated:             c.SLA.Translated,
	}
}
