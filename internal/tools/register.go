// register.go — single entrypoint cmd/bridge calls once at startup to wire
// every tool family into the registry.
package tools

import "github.com/devbridge/browser-debug-bridge/internal/mcp"

// RegisterAll wires every tool family defined in this package into reg.
func RegisterAll(reg *mcp.Registry, deps Deps) {
	RegisterSessionTools(reg, deps)
	RegisterErrorNetworkTools(reg, deps)
	RegisterQueryTools(reg, deps)
	RegisterHeavyTools(reg, deps)
	RegisterCorrelationTools(reg, deps)
	RegisterSnapshotTools(reg, deps)
}
