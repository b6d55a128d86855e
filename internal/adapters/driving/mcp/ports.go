package mcp

import (
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Pipeline answers queries end to end.
	Pipeline driving.Pipeline

	// Health reports node readiness.
	Health driving.HealthService

	// Records looks up answered queries. Optional.
	Records driving.RecordService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Pipeline == nil {
		return ErrMissingPipeline
	}
	if p.Health == nil {
		return ErrMissingHealthService
	}
	return nil
}
