package commands

import (
	"strings"

	"github.com/bushradio/newsdesk/internal/logging"
	"github.com/bushradio/newsdesk/pkg/interfaces"
)

const commandModuleRoot = "newsdesk.commands"

// CommandLogger returns a module-scoped logger for command handlers, enriching it with
// consistent structured fields so command executions can be filtered per module.
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	logger := logging.ModuleLogger(provider, commandModuleRoot+"."+name)
	return logging.WithFields(logger, map[string]any{
		"component":      "command",
		"command_module": name,
	})
}
