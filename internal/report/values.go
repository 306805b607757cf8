package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/trialq/trialq/internal/model"
)

// CleanValue renders a result value for display. Nil and empty values
// become "", and the b'...' wrapping left by byte-string exports of SAS
// transport files is removed.
func CleanValue(v interface{}) string {
	var s string
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		s = val
	case []byte:
		s = string(val)
	case time.Time:
		s = val.Format(time.RFC3339)
	default:
		s = fmt.Sprint(val)
	}
	s = strings.TrimPrefix(s, "b'")
	s = strings.TrimSuffix(s, "'")
	return s
}

// CleanRows returns display copies of rows without the id column and with
// every value passed through CleanValue.
func CleanRows(rows []model.Row) []model.Row {
	out := make([]model.Row, len(rows))
	for i, row := range rows {
		clean := make(model.Row, len(row))
		for k, v := range row {
			if k == "id" {
				continue
			}
			clean[k] = CleanValue(v)
		}
		out[i] = clean
	}
	return out
}

// DisplayColumns returns the column order for rows, without id. Known
// columns keep their result order; anything else follows sorted.
func DisplayColumns(columns []string, rows []model.Row) []string {
	var cols []string
	if len(rows) > 0 {
		cols = model.OrderedColumns(rows[0], columns)
	} else {
		cols = append(cols, columns...)
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != "id" {
			out = append(out, c)
		}
	}
	return out
}

func truncate(s string, limit, keep int, suffix string) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:keep]) + suffix
}
