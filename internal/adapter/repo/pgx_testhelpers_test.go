package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	query string
	args  []any
}

// stubExecutor records every statement and serves canned rows for Query.
type stubExecutor struct {
	execs    []execCall
	queries  []execCall
	rows     [][]any
	execErr  error
	queryErr error
}

func (s *stubExecutor) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, execCall{query: query, args: args})
	if s.execErr != nil {
		return pgconn.CommandTag{}, s.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (s *stubExecutor) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	s.queries = append(s.queries, execCall{query: query, args: args})
	return errRow{err: pgx.ErrNoRows}
}

func (s *stubExecutor) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	s.queries = append(s.queries, execCall{query: query, args: args})
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return &sliceRows{data: s.rows, idx: -1}, nil
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type testRowsBase struct{}

func (testRowsBase) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (testRowsBase) Conn() *pgx.Conn                              { return nil }
func (testRowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (testRowsBase) Values() ([]any, error)                       { return nil, fmt.Errorf("values not supported in test rows") }
func (testRowsBase) RawValues() [][]byte                          { return nil }

type sliceRows struct {
	testRowsBase
	data   [][]any
	idx    int
	closed bool
}

func (r *sliceRows) Next() bool {
	r.idx++
	return r.idx < len(r.data)
}

func (r *sliceRows) Scan(dest ...any) error {
	row := r.data[r.idx]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: got %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *[]byte:
			if row[i] == nil {
				*p = nil
			} else {
				*p = row[i].([]byte)
			}
		case *time.Time:
			*p = row[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

func (r *sliceRows) Err() error { return nil }
func (r *sliceRows) Close()     { r.closed = true }

func markerOf(query string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(query), "\n")
	return first
}
