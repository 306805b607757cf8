package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/trialq/trialq/internal/model"
)

// previewRecords is how many records a query result shows inline.
const previewRecords = 5

// --------------------------------------------------------------------------
// Parameter extraction helpers
// --------------------------------------------------------------------------

// requireString extracts a required, non-blank string argument.
func requireString(request mcp.CallToolRequest, key string) (string, error) {
	val, err := request.RequireString(key)
	if err != nil || strings.TrimSpace(val) == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return val, nil
}

// optionalString extracts an optional string argument from the tool request.
func optionalString(request mcp.CallToolRequest, key string) string {
	return request.GetString(key, "")
}

// optionalBool extracts an optional boolean argument from the tool request.
func optionalBool(request mcp.CallToolRequest, key string) bool {
	return request.GetBool(key, false)
}

// --------------------------------------------------------------------------
// Response builders
// --------------------------------------------------------------------------

// toolError returns a tool-level error result. Errors returned this way are
// visible to the LLM so it can self-correct; they do NOT terminate the MCP
// session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// formatSuccess renders a successful answer: the record count, up to
// previewRecords records as indented JSON in column order, and the SQL.
func formatSuccess(sql string, result model.QueryResult) string {
	var b strings.Builder
	b.WriteString("✅ Query successful!\n\n")
	fmt.Fprintf(&b, "📊 Found %d record(s)\n\n", result.RowCount)

	if result.RowCount > 0 {
		b.WriteString("🔍 Results (showing up to 5):\n\n")
		for i, row := range result.Rows {
			if i == previewRecords {
				break
			}
			fmt.Fprintf(&b, "Record %d:\n", i+1)
			b.WriteString(recordJSON(model.OrderedColumns(row, result.Columns), row))
			b.WriteString("\n\n")
		}
		if result.RowCount > previewRecords {
			fmt.Fprintf(&b, "... and %d more records\n\n", result.RowCount-previewRecords)
		}
	}

	fmt.Fprintf(&b, "📝 SQL: %s", sql)
	return b.String()
}

// formatFailure renders an exhausted repair loop.
func formatFailure(attempts int, lastErr, sql string) string {
	return fmt.Sprintf("❌ Query failed after %d attempts.\n\nError: %s\n\nSQL: %s\n\nTry rephrasing your query.", attempts, lastErr, sql)
}

// recordJSON encodes row as a two-space indented JSON object with keys in
// the given order.
func recordJSON(columns []string, row model.Row) string {
	if len(columns) == 0 {
		return "{}"
	}
	var b bytes.Buffer
	b.WriteString("{\n")
	for i, col := range columns {
		key, _ := marshal(col)
		val, err := marshal(jsonValue(row[col]))
		if err != nil {
			val, _ = marshal(fmt.Sprint(row[col]))
		}
		fmt.Fprintf(&b, "  %s: %s", key, val)
		if i < len(columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

// marshal encodes v without HTML escaping.
func marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func jsonValue(v interface{}) interface{} {
	if raw, ok := v.([]byte); ok {
		return string(raw)
	}
	return v
}
