package connector

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestExecuteSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	q := "SELECT USUBJID, AGE FROM demographics WHERE AGE > 65;"
	mock.ExpectQuery(regexp.QuoteMeta(q)).
		WillReturnRows(sqlmock.NewRows([]string{"USUBJID", "AGE"}).
			AddRow("01-701-1015", []byte("70")).
			AddRow("01-701-1023", []byte("81")))

	res := Execute(context.Background(), db, q)
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", res.RowCount)
	}
	if len(res.Columns) != 2 || res.Columns[0] != "USUBJID" || res.Columns[1] != "AGE" {
		t.Errorf("Columns = %v, want [USUBJID AGE]", res.Columns)
	}
	if got, ok := res.Rows[0]["AGE"].(string); !ok || got != "70" {
		t.Errorf("AGE = %#v, want string \"70\"", res.Rows[0]["AGE"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestExecuteEmptyResultIsSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	q := "SELECT * FROM demographics WHERE AGE > 200;"
	mock.ExpectQuery(regexp.QuoteMeta(q)).WillReturnRows(sqlmock.NewRows([]string{"AGE"}))

	res := Execute(context.Background(), db, q)
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.RowCount != 0 || len(res.Rows) != 0 {
		t.Errorf("expected no rows, got %d", res.RowCount)
	}
}

func TestExecutePreservesEngineError(t *testing.T) {
	db, mock := newMockDB(t)
	q := "SELECT * FROM demog;"
	mock.ExpectQuery(regexp.QuoteMeta(q)).WillReturnError(errors.New("no such table: demog"))

	res := Execute(context.Background(), db, q)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error != "no such table: demog" {
		t.Errorf("Error = %q, want verbatim engine text", res.Error)
	}
}

func TestExecuteRowError(t *testing.T) {
	db, mock := newMockDB(t)
	q := "SELECT AGE FROM demographics;"
	mock.ExpectQuery(regexp.QuoteMeta(q)).
		WillReturnRows(sqlmock.NewRows([]string{"AGE"}).
			AddRow("70").
			RowError(0, errors.New("interrupted")))

	res := Execute(context.Background(), db, q)
	if res.Success {
		t.Fatal("expected failure on row error")
	}
	if res.Error != "interrupted" {
		t.Errorf("Error = %q, want %q", res.Error, "interrupted")
	}
}

func TestExecuteNilDB(t *testing.T) {
	res := Execute(context.Background(), nil, "SELECT 1;")
	if res.Success {
		t.Fatal("expected failure for nil db")
	}
}

func TestCountTable(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "demographics"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(254))

	n, err := CountTable(context.Background(), db, QuoteDouble("demographics"))
	if err != nil {
		t.Fatalf("CountTable: %v", err)
	}
	if n != 254 {
		t.Errorf("CountTable = %d, want 254", n)
	}
}

func TestQuoteDouble(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"demographics", `"demographics"`},
		{`we"ird`, `"we""ird"`},
	}
	for _, tt := range tests {
		if got := QuoteDouble(tt.in); got != tt.want {
			t.Errorf("QuoteDouble(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeDSN(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		dsn    string
		want   string
	}{
		{
			name:   "postgres password with reserved characters",
			driver: "postgres",
			dsn:    "postgres://trial:p@ss#1@db.local:5432/cdisc?sslmode=disable",
			want:   "postgres://trial:p@ss%231@db.local:5432/cdisc?sslmode=disable",
		},
		{
			name:   "postgres without credentials",
			driver: "postgres",
			dsn:    "postgres://db.local/cdisc",
			want:   "postgres://db.local/cdisc",
		},
		{
			name:   "mysql bare host port",
			driver: "mysql",
			dsn:    "trial:secret@db.local:3306/cdisc",
			want:   "trial:secret@tcp(db.local:3306)/cdisc",
		},
		{
			name:   "mysql parens without network",
			driver: "mysql",
			dsn:    "trial:secret@(db.local:3306)/cdisc",
			want:   "trial:secret@tcp(db.local:3306)/cdisc",
		},
		{
			name:   "sqlite untouched",
			driver: "sqlite",
			dsn:    "/data/trials.db",
			want:   "/data/trials.db",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeDSN(tt.driver, tt.dsn); got != tt.want {
				t.Errorf("SanitizeDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPoolNotConnected(t *testing.T) {
	var p Pool
	if err := p.Ping(context.Background()); !errors.Is(err, errNotConnected) {
		t.Errorf("Ping = %v, want errNotConnected", err)
	}
	if res := p.ExecuteQuery(context.Background(), "SELECT 1"); res.Success {
		t.Error("ExecuteQuery succeeded without a pool")
	}
	if err := p.Disconnect(); err != nil {
		t.Errorf("Disconnect = %v", err)
	}
}

func TestPoolDisconnectClearsDB(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectClose()

	p := NewPool(db)
	if p.DB() != db {
		t.Fatal("DB() did not return the wrapped pool")
	}
	if err := p.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if p.DB() != nil {
		t.Error("DB() not cleared after Disconnect")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
