package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	// pragmas via DSN
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func Migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	at TEXT NOT NULL,
	status TEXT NOT NULL,
	subject TEXT NOT NULL DEFAULT '',
	verb TEXT NOT NULL,
	api_group TEXT NOT NULL DEFAULT '',
	resource TEXT NOT NULL,
	namespace TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_at ON decisions(at DESC);
`
	_, err := db.Exec(schema)
	return err
}
