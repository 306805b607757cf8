package query

import (
	"context"
	"strings"
	"testing"

	"github.com/trialq/trialq/internal/model"
)

func TestCheckReadOnly(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr string
	}{
		{"plain select", "SELECT * FROM demographics WHERE AGE > 65;", ""},
		{"lower case select", "select usubjid from dm;", ""},
		{"cte", "WITH old AS (SELECT * FROM dm WHERE AGE > 65) SELECT * FROM old;", ""},
		{"explain", "EXPLAIN QUERY PLAN SELECT * FROM dm;", ""},
		{"keyword in literal", "SELECT * FROM adverse_events WHERE AETERM LIKE '%delete%';", ""},
		{"escaped quote literal", "SELECT * FROM cm WHERE CMTRT = 'O''Brien; DROP TABLE dm';", ""},
		{"replace function", "SELECT REPLACE(AETERM, 'b''', '') FROM adverse_events;", ""},
		{"comment before select", "-- patients\nSELECT * FROM dm;", ""},
		{"no semicolon", "SELECT 1", ""},
		{"insert", "INSERT INTO dm VALUES (1);", "must start with"},
		{"drop", "DROP TABLE demographics;", "must start with"},
		{"pragma", "PRAGMA writable_schema = 1;", "must start with"},
		{"stacked", "SELECT 1; DROP TABLE dm;", "single statement"},
		{"write in cte", "WITH x AS (DELETE FROM dm RETURNING *) SELECT * FROM x;", "data-modifying"},
		{"empty", ";", "must start with"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckReadOnly(tt.sql)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error for %q: %v", tt.sql, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error for %q", tt.sql)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

type recordingExecutor struct {
	calls []string
}

func (r *recordingExecutor) ExecuteQuery(_ context.Context, q string) model.QueryResult {
	r.calls = append(r.calls, q)
	return model.Succeeded(nil, nil)
}

func TestGuard(t *testing.T) {
	ctx := context.Background()

	inner := &recordingExecutor{}
	g := NewGuard(inner, true)

	res := g.ExecuteQuery(ctx, "DELETE FROM dm;")
	if res.Success {
		t.Fatal("guard should reject writes on a read-only source")
	}
	if !strings.HasPrefix(res.Error, "read-only source") {
		t.Errorf("Error = %q", res.Error)
	}
	if len(inner.calls) != 0 {
		t.Errorf("rejected statement reached the store: %v", inner.calls)
	}

	if res := g.ExecuteQuery(ctx, "SELECT * FROM dm;"); !res.Success {
		t.Errorf("select should pass: %+v", res)
	}

	open := NewGuard(inner, false)
	open.ExecuteQuery(ctx, "DELETE FROM dm;")
	if len(inner.calls) != 2 {
		t.Errorf("writable guard should forward everything, calls = %v", inner.calls)
	}
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		input   string
		wantErr string
	}{
		{"adverse_events", ""},
		{"_tmp", ""},
		{"", "cannot be empty"},
		{"1dm", "must match"},
		{"vital signs", "must match"},
		{"dm; DROP TABLE x--", "must match"},
		{"select", "reserved word"},
		{strings.Repeat("a", 129), "too long"},
	}
	for _, tt := range tests {
		err := ValidateIdentifier(tt.input)
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("ValidateIdentifier(%q) unexpected error: %v", tt.input, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("ValidateIdentifier(%q) = %v, want %q", tt.input, err, tt.wantErr)
		}
	}
}

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Vital Signs", "vital_signs"},
		{"ae-2024", "ae_2024"},
		{"2024_lb", "t_2024_lb"},
		{"Order", "t_order"},
		{"---", "t_"},
	}
	for _, tt := range tests {
		got := NormalizeIdentifier(tt.in)
		if got != tt.want {
			t.Errorf("NormalizeIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if err := ValidateIdentifier(got); err != nil {
			t.Errorf("NormalizeIdentifier(%q) produced invalid identifier: %v", tt.in, err)
		}
	}
}
