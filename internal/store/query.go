package store

import (
	"context"
	"fmt"
	"strings"
)

// Predicate is a filter over the runs table.
//
// This is a sealed interface: Equals, HasPass and And are the only
// implementations, so compilePredicate can switch exhaustively.
type Predicate interface {
	predicateNode()
}

// Equals matches runs whose column equals Value.
type Equals struct {
	Column string // one of the filterable columns
	Value  any
}

// HasPass matches runs whose pass list names Pass.
type HasPass struct {
	Pass string
}

// And matches runs satisfying every predicate. An empty And matches all.
type And struct {
	Predicates []Predicate
}

func (Equals) predicateNode()  {}
func (HasPass) predicateNode() {}
func (And) predicateNode()     {}

// RunQuery selects runs. Results are always ordered newest first, with id
// as the tiebreaker.
type RunQuery struct {
	Filter Predicate // nil matches every run
	Limit  int       // <= 0 means no limit
}

// filterable lists the columns Equals may reference. Column names are
// spliced into SQL, values never are.
var filterable = map[string]bool{
	"source_hash": true,
	"source_path": true,
	"status":      true,
	"error_code":  true,
	"output_hash": true,
}

// compileQuery converts q to parameterized SQL.
func compileQuery(q RunQuery) (string, []any, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + runColumns + ` FROM runs`)

	var params []any
	if q.Filter != nil {
		where, p, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(` WHERE ` + where)
		params = p
	}

	b.WriteString(` ORDER BY seq DESC, id COLLATE BINARY ASC`)
	if q.Limit > 0 {
		b.WriteString(` LIMIT ?`)
		params = append(params, q.Limit)
	}
	if params == nil {
		params = []any{}
	}
	return b.String(), params, nil
}

func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		if !filterable[pred.Column] {
			return "", nil, fmt.Errorf("column %q is not filterable", pred.Column)
		}
		value := pred.Value
		if s, ok := value.(Status); ok {
			value = string(s)
		}
		return pred.Column + ` = ?`, []any{value}, nil

	case HasPass:
		return `EXISTS (SELECT 1 FROM json_each(runs.passes) WHERE json_each.value = ?)`, []any{pred.Pass}, nil

	case And:
		if len(pred.Predicates) == 0 {
			return `1 = 1`, nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, p, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, "("+sql+")")
			params = append(params, p...)
		}
		return strings.Join(parts, ` AND `), params, nil

	case nil:
		return `1 = 1`, nil, nil

	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// QueryRuns returns the runs matching q. Pass stats are not loaded.
func (s *Store) QueryRuns(ctx context.Context, q RunQuery) ([]Run, error) {
	query, params, err := compileQuery(q)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("query runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return runs, nil
}
