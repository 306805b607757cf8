package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	schemaURI       = "trialq://schema"
	sourceSchemaURI = "trialq://schema/"
	sourcesURI      = "trialq://sources"
)

// registerResources adds read-only context documents: the default schema
// description, one per source, and the source list.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			schemaURI,
			"Clinical Trial Schema",
			mcp.WithResourceDescription(
				"Tables, leading columns and row counts of the default trial source, "+
					"in the form used to prompt SQL translation.",
			),
			mcp.WithMIMEType("text/plain"),
		),
		s.handleSchemaResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			sourceSchemaURI+"{source}",
			"Trial Source Schema",
			mcp.WithTemplateDescription("Schema description of a named trial source."),
			mcp.WithTemplateMIMEType("text/plain"),
		),
		s.handleSchemaResource,
	)

	srv.AddResource(
		mcp.NewResource(
			sourcesURI,
			"Trial Sources",
			mcp.WithResourceDescription("Registered trial sources and the default one."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleSourcesResource,
	)
}

// handleSchemaResource serves trialq://schema and trialq://schema/{source}.
func (s *MCPServer) handleSchemaResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	uri := request.Params.URI
	source := ""
	if uri != schemaURI {
		source = strings.TrimPrefix(uri, sourceSchemaURI)
		if source == "" || source == uri {
			return nil, fmt.Errorf("invalid schema URI %q: expected %s or %s{source}", uri, schemaURI, sourceSchemaURI)
		}
	}

	desc, err := s.svc.Describe(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to describe %q: %w (available: %v)", source, err, s.svc.Sources())
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     desc.String(),
		},
	}, nil
}

// handleSourcesResource returns the registered source names as JSON.
func (s *MCPServer) handleSourcesResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	b, err := json.MarshalIndent(map[string]interface{}{
		"default": s.svc.DefaultSource(),
		"sources": s.svc.Sources(),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sources: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      sourcesURI,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
