package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// goose называет диалект sqlite "sqlite3"
var dialects = map[string]string{
	"postgres": "postgres",
	"sqlite":   "sqlite3",
}

// Run выполняет все миграции из встроенной папки sql/
func Run(db *sql.DB, driver string, logger goose.Logger) error {
	dialect, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("no migration dialect for driver %q", driver)
	}
	if logger != nil {
		goose.SetLogger(logger)
	}
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "sql"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
