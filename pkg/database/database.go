// Package database provides a thin management layer over sqlx for the
// CRUD and schema chores of tools built on the toolkit.
//
// Queries built here use ? placeholders and are rebound to the
// connected driver's placeholder style, so the same Manager code runs
// against PostgreSQL in production and SQLite in local tooling. Table
// and column names supplied by the caller are double-quoted before
// they reach the SQL text (MySQL needs ANSI_QUOTES mode for that).
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Manager wraps a sqlx database handle with map-driven helpers for the
// common CRUD operations.
type Manager struct {
	db *sqlx.DB
}

// Open connects to the database identified by driverName and dsn. The
// connection is verified lazily; call Ping to check it eagerly.
func Open(driverName, dsn string) (*Manager, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: opening %s connection: %w", driverName, err)
	}
	return &Manager{db: db}, nil
}

// NewManager wraps an existing sqlx handle.
func NewManager(db *sqlx.DB) *Manager {
	return &Manager{db: db}
}

// DB exposes the underlying handle for queries the helpers do not
// cover.
func (m *Manager) DB() *sqlx.DB { return m.db }

// Ping verifies the connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	return m.db.Close()
}

// Execute runs a statement that returns no rows. The query may use ?
// placeholders regardless of the connected driver.
func (m *Manager) Execute(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := m.db.ExecContext(ctx, m.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("database: executing statement: %w", err)
	}
	return res, nil
}

// Query runs a statement that returns rows and scans each row into a
// map keyed by column name. The query may use ? placeholders
// regardless of the connected driver.
func (m *Manager) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := m.db.QueryxContext(ctx, m.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("database: querying: %w", err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("database: scanning row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: reading rows: %w", err)
	}
	return out, nil
}

// Insert adds one row to table with the given column values.
func (m *Manager) Insert(ctx context.Context, table string, data map[string]any) error {
	if len(data) == 0 {
		return fmt.Errorf("database: insert into %s: no columns given", table)
	}
	query, args := buildInsert(table, data)
	_, err := m.Execute(ctx, query, args...)
	return err
}

// Select returns the rows of table matching the where conditions,
// restricted to columns. Nil columns selects every column; nil where
// matches every row; conditions are combined with AND. A positive
// limit caps the number of rows returned.
func (m *Manager) Select(ctx context.Context, table string, columns []string, where map[string]any, limit int) ([]map[string]any, error) {
	query, args := buildSelect(table, columns, where, limit)
	return m.Query(ctx, query, args...)
}

// Update sets the data columns on every row of table matching the
// where conditions and reports how many rows changed. An empty where
// is rejected rather than updating the whole table.
func (m *Manager) Update(ctx context.Context, table string, data, where map[string]any) (int64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("database: update %s: no columns given", table)
	}
	if len(where) == 0 {
		return 0, fmt.Errorf("database: update %s: refusing to run without conditions", table)
	}
	query, args := buildUpdate(table, data, where)
	res, err := m.Execute(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("database: update %s: counting affected rows: %w", table, err)
	}
	return n, nil
}

// Delete removes every row of table matching the where conditions and
// reports how many rows were removed. An empty where is rejected
// rather than emptying the whole table.
func (m *Manager) Delete(ctx context.Context, table string, where map[string]any) (int64, error) {
	if len(where) == 0 {
		return 0, fmt.Errorf("database: delete from %s: refusing to run without conditions", table)
	}
	query, args := buildDelete(table, where)
	res, err := m.Execute(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("database: delete from %s: counting affected rows: %w", table, err)
	}
	return n, nil
}

// CreateTable creates table with the given column definitions if it
// does not already exist. Columns are emitted in sorted name order so
// the generated DDL is stable.
func (m *Manager) CreateTable(ctx context.Context, table string, columns map[string]string) error {
	if len(columns) == 0 {
		return fmt.Errorf("database: create table %s: no columns given", table)
	}
	_, err := m.Execute(ctx, buildCreateTable(table, columns))
	return err
}

// DropTable removes table if it exists.
func (m *Manager) DropTable(ctx context.Context, table string) error {
	_, err := m.Execute(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table)))
	return err
}

// Tables lists the user tables visible on the current connection. The
// catalog query depends on the connected driver; PostgreSQL and SQLite
// are supported.
func (m *Manager) Tables(ctx context.Context) ([]string, error) {
	var query string
	switch driver := m.db.DriverName(); driver {
	case "sqlite3", "sqlite":
		query = "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name"
	case "pgx", "postgres":
		query = "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name"
	case "mysql":
		query = "SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name"
	default:
		return nil, fmt.Errorf("database: listing tables: unsupported driver %s", driver)
	}

	var names []string
	if err := m.db.SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("database: listing tables: %w", err)
	}
	return names, nil
}

// quoteIdent double-quotes an identifier so user-supplied table and
// column names cannot break out of the SQL text.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sortedKeys gives map-driven builders a stable column order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildInsert(table string, data map[string]any) (string, []any) {
	cols := sortedKeys(data)
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		marks[i] = "?"
		args[i] = data[c]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	return query, args
}

func buildSelect(table string, columns []string, where map[string]any, limit int) (string, []any) {
	selected := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = quoteIdent(c)
		}
		selected = strings.Join(quoted, ", ")
	}

	query := fmt.Sprintf("SELECT %s FROM %s", selected, quoteIdent(table))
	clause, args := buildWhere(where)
	query += clause
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return query, args
}

func buildUpdate(table string, data, where map[string]any) (string, []any) {
	cols := sortedKeys(data)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(data)+len(where))
	for i, c := range cols {
		sets[i] = quoteIdent(c) + " = ?"
		args = append(args, data[c])
	}

	clause, whereArgs := buildWhere(where)
	query := fmt.Sprintf("UPDATE %s SET %s", quoteIdent(table), strings.Join(sets, ", ")) + clause
	return query, append(args, whereArgs...)
}

func buildDelete(table string, where map[string]any) (string, []any) {
	clause, args := buildWhere(where)
	return fmt.Sprintf("DELETE FROM %s", quoteIdent(table)) + clause, args
}

func buildWhere(where map[string]any) (string, []any) {
	if len(where) == 0 {
		return "", nil
	}
	cols := sortedKeys(where)
	conds := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		conds[i] = quoteIdent(c) + " = ?"
		args[i] = where[c]
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func buildCreateTable(table string, columns map[string]string) string {
	cols := sortedKeys(columns)
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteIdent(c) + " " + columns[c]
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		quoteIdent(table), strings.Join(defs, ", "))
}
