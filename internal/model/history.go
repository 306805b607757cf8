package model

import "time"

// HistoryEntry records one answered question.
type HistoryEntry struct {
	ID         int64     `json:"id" db:"id"`
	Source     string    `json:"source" db:"source"`
	Question   string    `json:"question" db:"question"`
	FinalSQL   string    `json:"final_sql" db:"final_sql"`
	Success    bool      `json:"success" db:"success"`
	RowCount   int       `json:"row_count" db:"row_count"`
	Attempts   int       `json:"attempts" db:"attempts"`
	Error      string    `json:"error,omitempty" db:"error"`
	DurationMs int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ReportRecord tracks a generated report artifact.
type ReportRecord struct {
	ID        int64     `json:"id" db:"id"`
	Filename  string    `json:"filename" db:"filename"`
	Format    string    `json:"format" db:"format"`
	Location  string    `json:"location" db:"location"`
	Question  string    `json:"question" db:"question"`
	RowCount  int       `json:"row_count" db:"row_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
