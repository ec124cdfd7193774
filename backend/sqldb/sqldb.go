// Package sqldb is the SQL backend behind the database-query and
// model-operation tools and the model-schema resource.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	_ "modernc.org/sqlite"
)

var (
	// ErrStatementNotAllowed is returned by Select for anything but a single
	// SELECT statement.
	ErrStatementNotAllowed = errors.New("sqldb: only SELECT queries are allowed")
	// ErrInvalidIdentifier rejects table or column names that are not plain
	// identifiers.
	ErrInvalidIdentifier = errors.New("sqldb: invalid identifier")
	// ErrNotFound is returned when no row has the requested id.
	ErrNotFound = errors.New("sqldb: record not found")
	// ErrQueryTimeout is returned when a query runs past the max query time.
	ErrQueryTimeout = errors.New("sqldb: query exceeded maximum execution time")
)

var (
	selectPattern = regexp.MustCompile(`(?i)^\s*SELECT\s+`)
	identPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Row is one result row keyed by column name. Text columns are strings.
type Row map[string]any

// QueryResult is the outcome of Select.
type QueryResult struct {
	Results []Row `json:"results"`
	Count   int   `json:"count"`
	// ExecutionTime is in seconds, rounded to four decimals.
	ExecutionTime float64 `json:"execution_time"`
}

// Column describes one table column.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	Default    any    `json:"default"`
	PrimaryKey bool   `json:"primary_key"`
}

// DB wraps a database/sql handle. Introspection queries assume SQLite.
type DB struct {
	db           *sql.DB
	maxQueryTime time.Duration
}

// Option configures a DB.
type Option func(*DB)

// WithMaxQueryTime bounds each Select. Zero disables the bound.
func WithMaxQueryTime(d time.Duration) Option {
	return func(db *DB) {
		db.maxQueryTime = d
	}
}

// Open opens a database with the named driver ("sqlite" is registered).
func Open(driver, dsn string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb: open %s: %w", driver, err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqldb: ping %s: %w", driver, err)
	}
	return New(sqlDB, opts...), nil
}

// New wraps an open handle.
func New(sqlDB *sql.DB, opts ...Option) *DB {
	db := &DB{db: sqlDB, maxQueryTime: 30 * time.Second}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// SQL returns the underlying handle.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Close closes the underlying handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// Exec runs a statement without the SELECT restriction. It is meant for
// migrations and seeding, not for tool input.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, query, args...)
}

// Select runs a read-only query with positional bindings.
func (d *DB) Select(ctx context.Context, query string, bindings []any) (*QueryResult, error) {
	query = strings.TrimSpace(query)
	if !selectPattern.MatchString(query) || !singleStatement(query) {
		return nil, ErrStatementNotAllowed
	}

	if d.maxQueryTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.maxQueryTime)
		defer cancel()
	}

	start := time.Now()
	rows, err := d.query(ctx, query, bindings...)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w (%s)", ErrQueryTimeout, d.maxQueryTime)
		}
		return nil, err
	}

	return &QueryResult{
		Results:       rows,
		Count:         len(rows),
		ExecutionTime: math.Round(elapsed.Seconds()*1e4) / 1e4,
	}, nil
}

// singleStatement reports whether query holds at most one statement. Text
// after a top-level semicolon may only be whitespace, comments or further
// semicolons. Quoted strings, quoted identifiers and comments are skipped.
func singleStatement(query string) bool {
	ended := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			if ended {
				return false
			}
			j := strings.IndexByte(query[i+1:], c)
			if j < 0 {
				return true
			}
			i += j + 1
		case c == '[':
			if ended {
				return false
			}
			j := strings.IndexByte(query[i+1:], ']')
			if j < 0 {
				return true
			}
			i += j + 1
		case c == '-' && strings.HasPrefix(query[i:], "--"):
			j := strings.IndexByte(query[i:], '\n')
			if j < 0 {
				return true
			}
			i += j
		case c == '/' && strings.HasPrefix(query[i:], "/*"):
			j := strings.Index(query[i+2:], "*/")
			if j < 0 {
				return true
			}
			i += j + 3
		case c == ';':
			ended = true
		case ended && !unicode.IsSpace(rune(c)):
			return false
		}
	}
	return true
}

func (d *DB) query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func checkIdent(names ...string) error {
	for _, name := range names {
		if !identPattern.MatchString(name) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
		}
	}
	return nil
}

// sortedColumns returns the keys of attrs in a stable order, validated.
func sortedColumns(attrs map[string]any) ([]string, error) {
	cols := make([]string, 0, len(attrs))
	for col := range attrs {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	if err := checkIdent(cols...); err != nil {
		return nil, err
	}
	return cols, nil
}
