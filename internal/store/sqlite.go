package store

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"go.uber.org/zap"

	// SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"
)

// OpenSQLite opens a SQLite database, enables foreign keys and migrates
// the store's tables. The caller closes the returned database.
func OpenSQLite(ctx context.Context, dsn string, log *zap.Logger) (*SQLStore, *sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := NewSQLStore(entsql.OpenDB(dialect.SQLite, db), log)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("running schema migration: %w", err)
	}
	return s, db, nil
}
