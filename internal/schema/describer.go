// Package schema builds the schema description handed to the model as
// context for translation and refinement.
package schema

import (
	"context"
	"fmt"

	"github.com/trialq/trialq/internal/model"
)

// Source is the introspection surface of a trial store.
type Source interface {
	TableNames(ctx context.Context) ([]string, error)
	ColumnNames(ctx context.Context, table string) ([]string, error)
	CountRows(ctx context.Context, table string) (int64, error)
}

// Describer summarises a store. It holds no cache: every call reads the
// current tables, columns and row counts.
type Describer struct {
	src      Source
	patterns []string
}

// NewDescriber returns a Describer over src using the default query
// patterns.
func NewDescriber(src Source) *Describer {
	return &Describer{src: src, patterns: model.DefaultQueryPatterns}
}

// WithPatterns replaces the example query patterns appended to the
// description.
func (d *Describer) WithPatterns(patterns []string) *Describer {
	d.patterns = patterns
	return d
}

// Describe introspects every table of the store.
func (d *Describer) Describe(ctx context.Context) (model.SchemaDescription, error) {
	tables, err := d.src.TableNames(ctx)
	if err != nil {
		return model.SchemaDescription{}, fmt.Errorf("describe schema: %w", err)
	}

	desc := model.SchemaDescription{
		Tables:   make([]model.TableDescriptor, 0, len(tables)),
		Patterns: d.patterns,
	}
	for _, name := range tables {
		cols, err := d.src.ColumnNames(ctx, name)
		if err != nil {
			return model.SchemaDescription{}, fmt.Errorf("describe table %s: %w", name, err)
		}
		count, err := d.src.CountRows(ctx, name)
		if err != nil {
			return model.SchemaDescription{}, fmt.Errorf("describe table %s: %w", name, err)
		}

		listed := cols
		if len(listed) > model.MaxDescribedColumns {
			listed = listed[:model.MaxDescribedColumns]
		}
		desc.Tables = append(desc.Tables, model.TableDescriptor{
			Name:         name,
			Columns:      listed,
			TotalColumns: len(cols),
			RowCount:     count,
		})
	}
	return desc, nil
}

// Stats returns the row count of every table, keyed by table name.
func (d *Describer) Stats(ctx context.Context) (map[string]int64, error) {
	tables, err := d.src.TableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect stats: %w", err)
	}

	stats := make(map[string]int64, len(tables))
	for _, name := range tables {
		n, err := d.src.CountRows(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("collect stats: %w", err)
		}
		stats[name] = n
	}
	return stats, nil
}
