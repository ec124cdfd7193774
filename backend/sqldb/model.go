package sqldb

import (
	"context"
	"fmt"
	"strings"
)

// Create inserts attrs into table and returns the stored row. Model
// tables are keyed by an integer id column.
func (d *DB) Create(ctx context.Context, table string, attrs map[string]any) (Row, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	cols, err := sortedColumns(attrs)
	if err != nil {
		return nil, err
	}

	var query string
	args := make([]any, len(cols))
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", table)
	} else {
		marks := make([]string, len(cols))
		for i, col := range cols {
			marks[i] = "?"
			args[i] = attrs[col]
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	}

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqldb: create %s: %w", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqldb: create %s: %w", table, err)
	}
	return d.Find(ctx, table, id)
}

// Find returns the row with the given id, or ErrNotFound.
func (d *DB) Find(ctx context.Context, table string, id int64) (Row, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	rows, err := d.query(ctx, fmt.Sprintf("SELECT * FROM %s WHERE id = ?", table), id)
	if err != nil {
		return nil, fmt.Errorf("sqldb: find %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s with id %d", ErrNotFound, table, id)
	}
	return rows[0], nil
}

// All returns every row of table ordered by id.
func (d *DB) All(ctx context.Context, table string) ([]Row, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	rows, err := d.query(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY id", table))
	if err != nil {
		return nil, fmt.Errorf("sqldb: list %s: %w", table, err)
	}
	return rows, nil
}

// Update applies attrs to the row with the given id and returns it.
func (d *DB) Update(ctx context.Context, table string, id int64, attrs map[string]any) (Row, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	cols, err := sortedColumns(attrs)
	if err != nil {
		return nil, err
	}
	if _, err := d.Find(ctx, table, id); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return d.Find(ctx, table, id)
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets[i] = col + " = ?"
		args = append(args, attrs[col])
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", "))
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("sqldb: update %s: %w", table, err)
	}
	return d.Find(ctx, table, id)
}

// Delete removes the row with the given id, or returns ErrNotFound.
func (d *DB) Delete(ctx context.Context, table string, id int64) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return fmt.Errorf("sqldb: delete %s: %w", table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s with id %d", ErrNotFound, table, id)
	}
	return nil
}

// Tables lists user tables in name order.
func (d *DB) Tables(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqldb: list tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Columns describes the columns of table, or returns ErrNotFound when the
// table does not exist.
func (d *DB) Columns(ctx context.Context, table string) ([]Column, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	rows, err := d.query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("sqldb: columns of %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: table %s", ErrNotFound, table)
	}

	cols := make([]Column, 0, len(rows))
	for _, r := range rows {
		name, _ := r["name"].(string)
		typ, _ := r["type"].(string)
		cols = append(cols, Column{
			Name:       name,
			Type:       typ,
			Nullable:   !truthy(r["notnull"]),
			Default:    r["dflt_value"],
			PrimaryKey: truthy(r["pk"]),
		})
	}
	return cols, nil
}

func truthy(v any) bool {
	switch n := v.(type) {
	case int64:
		return n != 0
	case int:
		return n != 0
	case bool:
		return n
	}
	return false
}
