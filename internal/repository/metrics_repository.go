package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Condition is one WHERE clause fragment. Clause uses ? placeholders; the
// repository renumbers them into the query's $n sequence.
type Condition struct {
	Clause string
	Args   []interface{}
}

// GroupCount is one grouped row: the value of each grouping dimension in
// order, plus the row count.
type GroupCount struct {
	Dims  []string
	Count int64
}

// MetricsRepository runs the grouped COUNT queries behind the metrics
// endpoints. Tables, dimensions and clauses come from a fixed definition
// table in the service layer, never from request input, so building SQL by
// string here is safe.
type MetricsRepository struct {
	db *sqlx.DB
}

func NewMetricsRepository(db *sqlx.DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

// GroupedCounts counts rows of `from` matching all conds, grouped by dims.
// With no dims it returns a single row with an empty key.
func (r *MetricsRepository) GroupedCounts(ctx context.Context, from string, conds []Condition, dims []string) ([]GroupCount, error) {
	var sb strings.Builder
	args := []interface{}{}

	sb.WriteString("SELECT ")
	for _, dim := range dims {
		sb.WriteString(dim + "::text, ")
	}
	sb.WriteString("COUNT(*) FROM " + from)

	for i, cond := range conds {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		clause := cond.Clause
		for _, arg := range cond.Args {
			args = append(args, arg)
			clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(args)), 1)
		}
		sb.WriteString("(" + clause + ")")
	}

	if len(dims) > 0 {
		sb.WriteString(" GROUP BY " + strings.Join(dims, ", "))
		sb.WriteString(" ORDER BY " + strings.Join(dims, ", "))
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("error running grouped count: %w", err)
	}
	defer rows.Close()

	var results []GroupCount
	for rows.Next() {
		group := GroupCount{Dims: make([]string, len(dims))}
		dest := make([]interface{}, 0, len(dims)+1)
		for i := range group.Dims {
			dest = append(dest, &group.Dims[i])
		}
		dest = append(dest, &group.Count)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("error scanning grouped count: %w", err)
		}
		results = append(results, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grouped counts: %w", err)
	}
	return results, nil
}
