// Package sqlite implements the repository interfaces on SQLite.
//
// Each aggregate (template, project, user, glossary term) is one row. The
// columns that are filtered, sorted or counted on are real columns; the
// nested parts of the document (file tree, dependency list, progress
// records, preferences) are JSON text columns that are read and written
// whole. A mutation therefore always touches exactly one row.
//
// modernc.org/sqlite is a pure Go translation of SQLite: no CGo, no C
// compiler, and ":memory:" databases for tests.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	moderncsqlite "modernc.org/sqlite"

	"github.com/sakif/code-compass/internal/apperror"
)

// fold is lower() for every script, not only ASCII. Search patterns are
// lowered with strings.ToLower, so columns must be folded the same way.
func init() {
	moderncsqlite.MustRegisterDeterministicScalarFunction("fold", 1, foldText)
}

func foldText(_ *moderncsqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// DefaultTimeout bounds every store call when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

type Options struct {
	// Timeout bounds each repository call. A call that runs past it fails
	// with apperror.ErrTimeout.
	Timeout time.Duration
}

// DB wraps a sql.DB connection pool. Templates, Projects, Users and
// Glossary hand out the repository implementations that share it.
type DB struct {
	conn    *sql.DB
	timeout time.Duration
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/compass.db"  → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests)
//
// The pool is limited to a single connection. SQLite allows one writer at
// a time anyway, the read-modify-write in UpdateProgress relies on
// transactions not interleaving, and an in-memory database only exists
// on the connection that created it.
func New(dbPath string, opts Options) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	db := &DB{conn: conn, timeout: timeout}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the store is reachable, for readiness checks.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.readCtx(ctx)
	defer cancel()
	if err := db.conn.PingContext(ctx); err != nil {
		return wrapErr("sqlite: ping", err)
	}
	return nil
}

// readCtx bounds a read by the store timeout. Reads still stop when the
// caller goes away.
func (db *DB) readCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.timeout)
}

// writeCtx detaches a write from caller cancellation so a client
// disconnect cannot abandon it halfway, but keeps the store timeout.
func (db *DB) writeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), db.timeout)
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it safe to
// run on every start; later column additions go through
// addColumnIfNotExists.
func (db *DB) migrate() error {
	statements := []struct {
		name string
		sql  string
	}{
		{"templates", `
			CREATE TABLE IF NOT EXISTS templates (
				id             TEXT PRIMARY KEY,
				slug           TEXT NOT NULL UNIQUE,
				name           TEXT NOT NULL,
				description    TEXT NOT NULL DEFAULT '',
				category       TEXT NOT NULL,
				difficulty     TEXT NOT NULL,
				tags           TEXT NOT NULL DEFAULT '[]',
				file_structure TEXT NOT NULL DEFAULT 'null',
				dependencies   TEXT NOT NULL DEFAULT '[]',
				code_flow      TEXT NOT NULL DEFAULT '[]',
				metadata       TEXT NOT NULL DEFAULT '{}',
				views          INTEGER NOT NULL DEFAULT 0,
				completions    INTEGER NOT NULL DEFAULT 0,
				rating         REAL NOT NULL DEFAULT 0,
				is_published   INTEGER NOT NULL DEFAULT 1,
				created_by     TEXT NOT NULL DEFAULT '',
				created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_templates_listing ON templates(is_published, category, difficulty);
		`},
		{"projects", `
			CREATE TABLE IF NOT EXISTS projects (
				id                  TEXT PRIMARY KEY,
				name                TEXT NOT NULL,
				description         TEXT NOT NULL DEFAULT '',
				tech                TEXT NOT NULL DEFAULT '[]',
				color               TEXT NOT NULL DEFAULT '',
				icon                TEXT NOT NULL DEFAULT '',
				difficulty          TEXT NOT NULL,
				estimated_hours     INTEGER NOT NULL DEFAULT 0,
				file_structure      TEXT NOT NULL DEFAULT 'null',
				code_flow           TEXT NOT NULL DEFAULT '[]',
				dependencies        TEXT NOT NULL DEFAULT '[]',
				setup_instructions  TEXT NOT NULL DEFAULT '[]',
				is_active           INTEGER NOT NULL DEFAULT 1,
				featured            INTEGER NOT NULL DEFAULT 0,
				tags                TEXT NOT NULL DEFAULT '[]',
				prerequisites       TEXT NOT NULL DEFAULT '[]',
				learning_objectives TEXT NOT NULL DEFAULT '[]',
				total_files         INTEGER NOT NULL DEFAULT 0,
				created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_projects_listing ON projects(is_active, featured, created_at);
		`},
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				name          TEXT NOT NULL,
				email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
				password_hash TEXT NOT NULL DEFAULT '',
				mode          TEXT NOT NULL DEFAULT 'beginner',
				role          TEXT NOT NULL DEFAULT 'user',
				preferences   TEXT NOT NULL DEFAULT '{}',
				progress      TEXT NOT NULL DEFAULT '[]',
				is_active     INTEGER NOT NULL DEFAULT 1,
				last_login_at DATETIME,
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
		`},
		{"glossary_terms", `
			CREATE TABLE IF NOT EXISTS glossary_terms (
				id            TEXT PRIMARY KEY,
				term          TEXT NOT NULL UNIQUE COLLATE NOCASE,
				definition    TEXT NOT NULL,
				category      TEXT NOT NULL,
				difficulty    TEXT NOT NULL DEFAULT 'beginner',
				examples      TEXT NOT NULL DEFAULT '[]',
				related_terms TEXT NOT NULL DEFAULT '[]',
				tags          TEXT NOT NULL DEFAULT '[]',
				is_published  INTEGER NOT NULL DEFAULT 1,
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_glossary_listing ON glossary_terms(is_published, category);
		`},
	}

	for _, st := range statements {
		if _, err := db.conn.Exec(st.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", st.name, err)
		}
	}

	// GitHub sign-in came after the first users schema.
	if err := db.addColumnIfNotExists("users", "github_id", "INTEGER"); err != nil {
		return fmt.Errorf("adding github_id to users: %w", err)
	}
	if _, err := db.conn.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id ON users(github_id) WHERE github_id IS NOT NULL`,
	); err != nil {
		return fmt.Errorf("creating users github_id index: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent; safe to run multiple times.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// wrapErr classifies driver errors into the apperror taxonomy.
func wrapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return apperror.Timeout(op, err)
	case errors.Is(err, sql.ErrConnDone), strings.Contains(err.Error(), "database is closed"):
		return apperror.Unavailable(op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ===== JSON COLUMNS =====

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// fromJSON decodes a JSON column. An empty column leaves dst untouched.
func fromJSON(raw string, dst any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

// jsonColumns marshals several values in order, stopping at the first error.
func jsonColumns(values ...any) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		s, err := toJSON(v)
		if err != nil {
			return nil, fmt.Errorf("encoding column %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// ===== QUERY BUILDING =====

// where accumulates AND-ed conditions and their arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// likeEscaper escapes LIKE wildcards; every LIKE in this package uses
// ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive substring pattern for
// comparison against fold(column).
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func lowerArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = strings.ToLower(v)
	}
	return args
}
