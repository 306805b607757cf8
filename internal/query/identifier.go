// Package query guards the SQL that reaches a trial store: it validates
// identifiers created by the importer and keeps model-generated statements
// read-only.
package query

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// sqlReservedWords cannot be used as imported table names.
var sqlReservedWords = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true,
	"DROP": true, "CREATE": true, "ALTER": true, "TRUNCATE": true,
	"EXEC": true, "EXECUTE": true, "UNION": true, "INTO": true,
	"FROM": true, "WHERE": true, "TABLE": true, "DATABASE": true,
	"GRANT": true, "REVOKE": true, "INDEX": true, "VIEW": true,
	"ORDER": true, "GROUP": true, "JOIN": true, "SCHEMA": true,
}

// ValidateIdentifier reports whether name can be used unquoted as a table
// name: letters, digits and underscores, not starting with a digit, at most
// 128 characters and not a reserved word.
func ValidateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > 128 {
		return fmt.Errorf("identifier too long (max 128 chars): %q", name)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("invalid identifier %q: must match [a-zA-Z_][a-zA-Z0-9_]*", name)
	}
	if sqlReservedWords[strings.ToUpper(name)] {
		return fmt.Errorf("identifier %q is a SQL reserved word", name)
	}
	return nil
}

var nonIdentChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// NormalizeIdentifier turns an arbitrary label such as a file name into a
// valid lower-case identifier. Reserved words and leading digits get a
// "t_" prefix.
func NormalizeIdentifier(label string) string {
	name := strings.Trim(nonIdentChars.ReplaceAllString(strings.ToLower(label), "_"), "_")
	if name == "" {
		return "t_"
	}
	if name[0] >= '0' && name[0] <= '9' || sqlReservedWords[strings.ToUpper(name)] {
		name = "t_" + name
	}
	if len(name) > 128 {
		name = name[:128]
	}
	return name
}
