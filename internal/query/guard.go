package query

import (
	"context"
	"errors"
	"strings"

	"github.com/trialq/trialq/internal/model"
)

// Executor runs a SQL statement and reports the outcome as a value.
type Executor interface {
	ExecuteQuery(ctx context.Context, query string) model.QueryResult
}

var (
	errNotRead    = errors.New("read-only source: statement must start with SELECT, WITH, VALUES or EXPLAIN")
	errMultiple   = errors.New("read-only source: only a single statement is allowed")
	errWriteInCTE = errors.New("read-only source: data-modifying statements are not allowed")
)

var readKeywords = map[string]bool{"SELECT": true, "WITH": true, "VALUES": true, "EXPLAIN": true}

// writeKeywords may not appear anywhere in a read-only statement. REPLACE is
// absent because it is also a string function.
var writeKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true,
	"DROP": true, "ALTER": true, "CREATE": true, "TRUNCATE": true,
	"ATTACH": true, "DETACH": true, "GRANT": true, "PRAGMA": true, "VACUUM": true,
}

// CheckReadOnly returns an error unless query is a single read statement.
// String literals, quoted identifiers and comments are ignored when looking
// for keywords, so LIKE '%delete%' is fine.
func CheckReadOnly(query string) error {
	words, statements := scan(query)
	if statements > 1 {
		return errMultiple
	}
	if len(words) == 0 || !readKeywords[words[0]] {
		return errNotRead
	}
	for _, w := range words[1:] {
		if writeKeywords[w] {
			return errWriteInCTE
		}
	}
	return nil
}

// scan returns the upper-cased bare words of query and the number of
// non-empty statements separated by semicolons.
func scan(query string) ([]string, int) {
	var (
		words      []string
		cur        strings.Builder
		statements int
		pending    bool
	)
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, strings.ToUpper(cur.String()))
			cur.Reset()
			pending = true
		}
	}

	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`' || ch == '[':
			flush()
			closer := ch
			if ch == '[' {
				closer = ']'
			}
			i++
			for i < len(query) {
				if query[i] == closer {
					if i+1 < len(query) && query[i+1] == closer && closer != ']' {
						i += 2
						continue
					}
					break
				}
				i++
			}
			pending = true
		case ch == '-' && i+1 < len(query) && query[i+1] == '-':
			flush()
			for i < len(query) && query[i] != '\n' {
				i++
			}
		case ch == '/' && i+1 < len(query) && query[i+1] == '*':
			flush()
			i += 2
			for i+1 < len(query) && !(query[i] == '*' && query[i+1] == '/') {
				i++
			}
			i++
		case ch == ';':
			flush()
			if pending {
				statements++
				pending = false
			}
		case ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9':
			cur.WriteByte(ch)
		default:
			flush()
			if ch > ' ' {
				pending = true
			}
		}
	}
	flush()
	if pending {
		statements++
	}
	return words, statements
}

// Guard wraps an Executor and, when read-only, turns rejected statements
// into failed results before they reach the store. The rejection message is
// handed to the refiner like any other engine error.
type Guard struct {
	next     Executor
	readOnly bool
}

// NewGuard returns a Guard in front of next.
func NewGuard(next Executor, readOnly bool) *Guard {
	return &Guard{next: next, readOnly: readOnly}
}

// ExecuteQuery checks query and forwards it to the wrapped executor.
func (g *Guard) ExecuteQuery(ctx context.Context, query string) model.QueryResult {
	if g.readOnly {
		if err := CheckReadOnly(query); err != nil {
			return model.Failed(err.Error())
		}
	}
	return g.next.ExecuteQuery(ctx, query)
}
