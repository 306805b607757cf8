package oracle

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/trialq/trialq/internal/connector"
)

func TestTrimStatement(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SELECT * FROM DM;", "SELECT * FROM DM"},
		{"SELECT * FROM DM ;\n", "SELECT * FROM DM"},
		{"SELECT 1 FROM DUAL", "SELECT 1 FROM DUAL"},
	}
	for _, tt := range tests {
		if got := trimStatement(tt.in); got != tt.want {
			t.Errorf("trimStatement(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExecuteQueryStripsSemicolon(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	c := &OracleConnector{Pool: connector.NewPool(sqlx.NewDb(db, "oracle")), schemaName: "TRIALS"}

	mock.ExpectQuery("SELECT USUBJID FROM DEMOGRAPHICS").
		WillReturnRows(sqlmock.NewRows([]string{"USUBJID"}).AddRow("01-701-1015"))

	res := c.ExecuteQuery(context.Background(), "SELECT USUBJID FROM DEMOGRAPHICS;")
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTableNames(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	c := &OracleConnector{Pool: connector.NewPool(sqlx.NewDb(db, "oracle")), schemaName: "TRIALS"}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT table_name FROM all_tables")).
		WithArgs("TRIALS").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("DEMOGRAPHICS"))

	names, err := c.TableNames(context.Background())
	if err != nil {
		t.Fatalf("TableNames: %v", err)
	}
	if len(names) != 1 || names[0] != "DEMOGRAPHICS" {
		t.Errorf("TableNames() = %v", names)
	}
}
