package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database/sql drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DB wraps a database/sql connection to one of the supported drivers and
// smooths over their dialect differences.
type DB struct {
	conn   *sql.DB
	driver string
}

// OpenSQLite opens (or creates) the SQLite file at dbPath.
func OpenSQLite(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer; a single connection avoids SQLITE_BUSY
	conn.SetMaxOpenConns(1)
	return newDB(conn, DriverSQLite)
}

// Open connects to a postgres or mysql server with the given DSN.
func Open(driver, dsn string) (*DB, error) {
	if driver != DriverPostgres && driver != DriverMySQL {
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(10 * time.Minute)
	return newDB(conn, driver)
}

func newDB(conn *sql.DB, driver string) (*DB, error) {
	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	body := "TEXT"
	if db.driver == DriverMySQL {
		body = "LONGTEXT"
	}
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS staging_pages (
			slug VARCHAR(191) PRIMARY KEY,
			body ` + body + ` NOT NULL,
			updated_at BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS live_pages (
			slug VARCHAR(191) PRIMARY KEY,
			body ` + body + ` NOT NULL,
			published_at BIGINT NOT NULL DEFAULT 0
		)`,
		// Published snapshots, newest kept per slug
		`CREATE TABLE IF NOT EXISTS page_revisions (
			id VARCHAR(64) PRIMARY KEY,
			slug VARCHAR(191) NOT NULL,
			label VARCHAR(255) NOT NULL DEFAULT '',
			body ` + body + ` NOT NULL,
			created_at BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_page_revisions_slug ON page_revisions(slug, created_at)`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			name VARCHAR(191) PRIMARY KEY,
			value ` + body + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS mcp_approvals (
			id VARCHAR(64) PRIMARY KEY,
			tool VARCHAR(191) NOT NULL,
			description ` + body + ` NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			metadata ` + body + ` NOT NULL,
			created_at BIGINT NOT NULL DEFAULT 0
		)`,
	}

	for _, m := range migrations {
		if db.driver == DriverMySQL {
			// mysql has no CREATE INDEX IF NOT EXISTS
			m = strings.Replace(m, "INDEX IF NOT EXISTS", "INDEX", 1)
		}
		if _, err := db.conn.Exec(m); err != nil {
			// re-creating an index on mysql fails with a duplicate key name, safe to ignore
			if strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("migration failed: %s: %w", firstLine(m), err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders for drivers that number them.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// upsert builds an insert that replaces the row with the same key.
func (db *DB) upsert(table, key string, cols ...string) string {
	all := append([]string{key}, cols...)
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(all)), ", ")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(all, ", "), marks)
	sets := make([]string, len(cols))
	if db.driver == DriverMySQL {
		for i, c := range cols {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
		}
		return q + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}
	return q + fmt.Sprintf(" ON CONFLICT(%s) DO UPDATE SET ", key) + strings.Join(sets, ", ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
