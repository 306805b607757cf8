package nl2sql

import (
	"fmt"
	"strings"
)

const translateTemplate = `You are a SQL query generator. Convert natural language to SQL queries ONLY.

%s

Important rules:
- Return ONLY the SQL query, nothing else
- NO explanations, NO markdown, NO backticks
- Use LIKE '%%text%%' for text search (with single quotes)
- Use USUBJID to join tables
- Column names: AETERM (adverse event), AGE (age), SEX (sex), etc.
%s
Query: "%s"

SQL:`

const refineTemplate = `Fix this SQL query. Return ONLY the corrected SQL, nothing else.

%s

Failed SQL:
%s

Error:
%s

Rules:
- Return ONLY SQL
- NO explanations
- Fix the error
%s
Corrected SQL:`

// dialectRule is empty for SQLite, the dialect the prompts were tuned on.
func dialectRule(dialect string) string {
	d := strings.ToLower(strings.TrimSpace(dialect))
	if d == "" || d == "sqlite" {
		return ""
	}
	name, ok := dialectNames[d]
	if !ok {
		name = dialect
	}
	return fmt.Sprintf("- Use %s SQL syntax\n", name)
}

var dialectNames = map[string]string{
	"postgres":  "PostgreSQL",
	"mysql":     "MySQL",
	"mssql":     "SQL Server (T-SQL)",
	"snowflake": "Snowflake",
	"oracle":    "Oracle",
	"duckdb":    "DuckDB",
}

func translatePrompt(schema, question, dialect string) string {
	return fmt.Sprintf(translateTemplate, schema, dialectRule(dialect), question)
}

func refinePrompt(schema, failedSQL, errMsg, dialect string) string {
	return fmt.Sprintf(refineTemplate, schema, failedSQL, errMsg, dialectRule(dialect))
}
