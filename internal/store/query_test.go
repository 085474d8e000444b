package store

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestCompileQuery_AlwaysOrdered(t *testing.T) {
	tests := []struct {
		name       string
		query      RunQuery
		wantWhere  string
		wantParams []any
	}{
		{
			name:       "no filter",
			query:      RunQuery{},
			wantWhere:  "",
			wantParams: []any{},
		},
		{
			name:       "equals",
			query:      RunQuery{Filter: Equals{Column: "status", Value: StatusError}},
			wantWhere:  " WHERE status = ?",
			wantParams: []any{"error"},
		},
		{
			name: "and with limit",
			query: RunQuery{
				Filter: And{Predicates: []Predicate{
					Equals{Column: "error_code", Value: "UNBOUND_VARIABLE"},
					HasPass{Pass: "lower"},
				}},
				Limit: 3,
			},
			wantWhere:  " WHERE (error_code = ?) AND (EXISTS (SELECT 1 FROM json_each(runs.passes) WHERE json_each.value = ?))",
			wantParams: []any{"UNBOUND_VARIABLE", "lower", 3},
		},
		{
			name:       "empty and",
			query:      RunQuery{Filter: And{}},
			wantWhere:  " WHERE 1 = 1",
			wantParams: []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := compileQuery(tt.query)
			if err != nil {
				t.Fatalf("compileQuery() failed: %v", err)
			}
			if !strings.Contains(sql, "ORDER BY seq DESC, id COLLATE BINARY ASC") {
				t.Errorf("missing ORDER BY: %s", sql)
			}
			from := strings.Index(sql, " FROM runs") + len(" FROM runs")
			order := strings.Index(sql, " ORDER BY")
			if got := sql[from:order]; got != tt.wantWhere {
				t.Errorf("where = %q, want %q", got, tt.wantWhere)
			}
			if !reflect.DeepEqual(params, tt.wantParams) {
				t.Errorf("params = %v, want %v", params, tt.wantParams)
			}
		})
	}
}

func TestCompileQuery_RejectsUnknownColumn(t *testing.T) {
	_, _, err := compileQuery(RunQuery{Filter: Equals{Column: "id; DROP TABLE runs", Value: 1}})
	if err == nil {
		t.Fatal("expected error for unknown column")
	}
	if !strings.Contains(err.Error(), "not filterable") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestQueryRuns_Filters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	okRun := createTestRun("run-a", 1)

	parallel := createTestRun("run-b", 2)
	parallel.Passes = []string{"normalize-builtins", "lower", "parallelize"}

	failed := createTestRun("run-c", 3)
	failed.Status = StatusError
	failed.ErrorCode = "AMBIGUOUS_REDUCTION"
	failed.ErrorMessage = "two accumulators"
	failed.Output = ""
	failed.OutputHash = ""
	failed.Passes = []string{"normalize-builtins", "lower", "parallelize"}

	for _, r := range []Run{okRun, parallel, failed} {
		if err := s.WriteRun(ctx, r); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", r.ID, err)
		}
	}

	tests := []struct {
		name  string
		query RunQuery
		want  []string
	}{
		{"all", RunQuery{}, []string{"run-c", "run-b", "run-a"}},
		{"status ok", RunQuery{Filter: Equals{Column: "status", Value: StatusOK}}, []string{"run-b", "run-a"}},
		{"has pass", RunQuery{Filter: HasPass{Pass: "parallelize"}}, []string{"run-c", "run-b"}},
		{"has unknown pass", RunQuery{Filter: HasPass{Pass: "vectorize"}}, []string{}},
		{"and", RunQuery{Filter: And{Predicates: []Predicate{
			HasPass{Pass: "parallelize"},
			Equals{Column: "status", Value: StatusOK},
		}}}, []string{"run-b"}},
		{"limit", RunQuery{Limit: 2}, []string{"run-c", "run-b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.QueryRuns(ctx, tt.query)
			if err != nil {
				t.Fatalf("QueryRuns() failed: %v", err)
			}
			got := []string{}
			for _, r := range runs {
				got = append(got, r.ID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileQuery_PreparesInSQLite(t *testing.T) {
	s := createTestStore(t)

	queries := []RunQuery{
		{},
		{Limit: 1},
		{Filter: HasPass{Pass: "lower"}},
		{Filter: And{Predicates: []Predicate{
			Equals{Column: "status", Value: StatusOK},
			Equals{Column: "source_hash", Value: "h"},
		}}, Limit: 5},
	}
	for i, q := range queries {
		sql, _, err := compileQuery(q)
		if err != nil {
			t.Fatalf("query %d: compileQuery() failed: %v", i, err)
		}
		stmt, err := s.db.Prepare(sql)
		if err != nil {
			t.Fatalf("query %d: prepare %q: %v", i, sql, err)
		}
		stmt.Close()
	}
}
