package mysql

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/trialq/trialq/internal/connector"
)

func TestColumnNames(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	c := &MySQLConnector{Pool: connector.NewPool(sqlx.NewDb(db, "mysql")), schemaName: "trials"}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS")).
		WithArgs("trials", "vital_signs").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("USUBJID").AddRow("VSTESTCD").AddRow("VSORRES"))

	cols, err := c.ColumnNames(context.Background(), "vital_signs")
	if err != nil {
		t.Fatalf("ColumnNames: %v", err)
	}
	if len(cols) != 3 || cols[0] != "USUBJID" {
		t.Errorf("ColumnNames() = %v", cols)
	}
}

func TestCountRowsUsesBackticks(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	c := &MySQLConnector{Pool: connector.NewPool(sqlx.NewDb(db, "mysql")), schemaName: "trials"}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `trials`.`vital_signs`")).
		WillReturnRows(sqlmock.NewRows([]string{"c"}).AddRow(40))

	n, err := c.CountRows(context.Background(), "vital_signs")
	if err != nil {
		t.Fatalf("CountRows: %v", err)
	}
	if n != 40 {
		t.Errorf("CountRows() = %d, want 40", n)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	c := &MySQLConnector{}
	if got := c.QuoteIdentifier("a`b"); got != "`a``b`" {
		t.Errorf("QuoteIdentifier = %s", got)
	}
}
