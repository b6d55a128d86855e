// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// Fathom oracle. It lets AI assistants submit document questions and inspect
// node health.
package mcp

import "errors"

// ErrMissingPipeline is returned when the pipeline is not provided.
var ErrMissingPipeline = errors.New("mcp: pipeline is required")

// ErrMissingHealthService is returned when the health service is not provided.
var ErrMissingHealthService = errors.New("mcp: health service is required")
