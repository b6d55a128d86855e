package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for oracle resources.
	uriScheme = "fathom://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "health",
		Name:        "health",
		Description: "Node health and configured generation backends",
		MIMEType:    "application/json",
	}, s.handleHealthResource)

	// Template for answered queries.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "queries/{queryId}",
		Name:        "query-record",
		Description: "Ledger submission record of an answered query",
		MIMEType:    "application/json",
	}, s.handleQueryResource)
}

// handleHealthResource returns the current health report.
func (s *Server) handleHealthResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, s.ports.Health.Check(ctx))
}

// handleQueryResource returns the submission record for one query.
func (s *Server) handleQueryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Records == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract queryId from URI: fathom://queries/{queryId}
	queryID := extractQueryID(req.Params.URI)
	if queryID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	rec, err := s.ports.Records.Get(ctx, queryID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting query record: %w", err)
	}

	return jsonResource(req.Params.URI, rec)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractQueryID extracts the query ID from a URI like fathom://queries/{queryId}.
func extractQueryID(uri string) string {
	const prefix = uriScheme + "queries/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
