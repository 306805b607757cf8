package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/trialq/trialq/internal/repair"
	"github.com/trialq/trialq/internal/report"
	"github.com/trialq/trialq/internal/service"
)

// registerTools registers the trial query tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {
	srv.AddTool(
		mcp.NewTool("query_patients",
			mcp.WithDescription(
				"Query clinical trial data using natural language. Examples: "+
					`"Find patients over 65 with serious adverse events", `+
					`"Show all patients taking medication X", `+
					`"Get lab results for diabetic patients"`,
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Natural language query about patient/trial data"),
			),
			mcp.WithBoolean("generate_report",
				mcp.Description("Generate a PDF report of results"),
				mcp.DefaultBool(false),
			),
			mcp.WithString("source",
				mcp.Description("Trial source to query. Defaults to the server's default source."),
			),
		),
		s.handleQueryPatients,
	)

	srv.AddTool(
		mcp.NewTool("get_schema",
			mcp.WithDescription("View database structure and available tables/columns"),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("source",
				mcp.Description("Trial source to describe. Defaults to the server's default source."),
			),
		),
		s.handleGetSchema,
	)

	srv.AddTool(
		mcp.NewTool("get_stats",
			mcp.WithDescription("Get database statistics (record counts per table)"),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("source",
				mcp.Description("Trial source to count. Defaults to the server's default source."),
			),
		),
		s.handleGetStats,
	)
}

// handleQueryPatients answers a question through the repair loop.
func (s *MCPServer) handleQueryPatients(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	question, err := requireString(request, "query")
	if err != nil {
		return toolError("Error: %v", err)
	}
	source := optionalString(request, "source")

	s.logger.Info("processing question", "question", question, "source", source)

	ans, err := s.svc.Ask(ctx, source, question)
	if err != nil {
		var ex *repair.ExhaustedError
		if errors.As(err, &ex) {
			return mcp.NewToolResultError(formatFailure(ex.Attempts, ex.LastError, ex.LastSQL)), nil
		}
		if errors.Is(err, service.ErrSourceNotFound) {
			return toolError("Error: %v. Available sources: %v", err, s.svc.Sources())
		}
		return toolError("Error: %v", err)
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(formatSuccess(ans.FinalSQL, ans.Result)),
		},
	}

	if optionalBool(request, "generate_report") && ans.Result.RowCount > 0 {
		art, err := s.svc.GenerateReport(ctx, report.FormatPDF, report.Document{
			Question: question,
			Columns:  ans.Result.Columns,
			Rows:     ans.Result.Rows,
		})
		if err != nil {
			s.logger.Warn("report generation failed", "error", err)
			result.Content = append(result.Content, mcp.NewTextContent("\n⚠️ PDF Report failed: "+err.Error()))
		} else {
			result.Content = append(result.Content, mcp.NewTextContent("\n📄 PDF Report: "+art.Location))
		}
	}

	return result, nil
}

// handleGetSchema returns the schema description handed to the model.
func (s *MCPServer) handleGetSchema(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	desc, err := s.svc.Describe(ctx, optionalString(request, "source"))
	if err != nil {
		return toolError("Error: %v", err)
	}
	return mcp.NewToolResultText(desc.String()), nil
}

// handleGetStats returns row counts per table.
func (s *MCPServer) handleGetStats(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	stats, err := s.svc.Stats(ctx, optionalString(request, "source"))
	if err != nil {
		return toolError("Error: %v", err)
	}
	b, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return toolError("Error: %v", err)
	}

	var text strings.Builder
	text.WriteString("📊 Database Statistics:\n\n")
	text.Write(b)
	return mcp.NewToolResultText(text.String()), nil
}
