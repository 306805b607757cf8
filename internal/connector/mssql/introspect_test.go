package mssql

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/trialq/trialq/internal/connector"
)

func TestTableNamesUsesSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	c := New().(*MSSQLConnector)
	c.Pool = connector.NewPool(sqlx.NewDb(db, "sqlserver"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES")).
		WithArgs("dbo").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("medications"))

	names, err := c.TableNames(context.Background())
	if err != nil {
		t.Fatalf("TableNames: %v", err)
	}
	if len(names) != 1 || names[0] != "medications" {
		t.Errorf("TableNames() = %v", names)
	}
}

func TestCountRowsUsesBrackets(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	c := &MSSQLConnector{Pool: connector.NewPool(sqlx.NewDb(db, "sqlserver")), schemaName: "dbo"}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM [dbo].[medications]")).
		WillReturnRows(sqlmock.NewRows([]string{""}).AddRow(7))

	n, err := c.CountRows(context.Background(), "medications")
	if err != nil {
		t.Fatalf("CountRows: %v", err)
	}
	if n != 7 {
		t.Errorf("CountRows() = %d, want 7", n)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	c := &MSSQLConnector{}
	if got := c.QuoteIdentifier("a]b"); got != "[a]]b]" {
		t.Errorf("QuoteIdentifier = %s", got)
	}
}
