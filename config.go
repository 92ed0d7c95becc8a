package newsdesk

import "github.com/bushradio/newsdesk/internal/runtimeconfig"

type (
	Config           = runtimeconfig.Config
	LoggingConfig    = runtimeconfig.LoggingConfig
	DatabaseConfig   = runtimeconfig.DatabaseConfig
	SLAConfig        = runtimeconfig.SLAConfig
	AssignmentConfig = runtimeconfig.AssignmentConfig
)

// Assignment policy names accepted by Config.Assignment.Policy.
const (
	PolicyLeastLoaded = runtimeconfig.PolicyLeastLoaded
	PolicyRoundRobin  = runtimeconfig.PolicyRoundRobin
)

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.Normalize()
	return cfg
}
