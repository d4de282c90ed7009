package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pressly/goose/v3"

	"github.com/bookscout/bookscout/migrations"
)

// MigrationDirection selects which goose command Migrate runs.
type MigrationDirection string

const (
	MigrateUp     MigrationDirection = "up"
	MigrateDown   MigrationDirection = "down"
	MigrateReset  MigrationDirection = "reset"
	MigrateStatus MigrationDirection = "status"
)

// gooseRun is a seam for tests.
var gooseRun = func(ctx context.Context, db *sql.DB, direction MigrationDirection) error {
	switch direction {
	case MigrateUp:
		return goose.UpContext(ctx, db, ".")
	case MigrateDown:
		return goose.DownContext(ctx, db, ".")
	case MigrateReset:
		return goose.ResetContext(ctx, db, ".")
	case MigrateStatus:
		return goose.StatusContext(ctx, db, ".")
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
}

// Migrate applies the embedded schema migrations against databaseURL.
func Migrate(ctx context.Context, databaseURL string, direction MigrationDirection) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping migration connection: %w", err)
	}

	return RunMigrations(ctx, db, direction)
}

// RunMigrations runs goose over the embedded migrations using an open connection.
func RunMigrations(ctx context.Context, db *sql.DB, direction MigrationDirection) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := gooseRun(ctx, db, direction); err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	return nil
}

// SetMigrationOutput redirects goose's progress logging. Pass io.Discard to silence it.
func SetMigrationOutput(w io.Writer) {
	goose.SetLogger(&gooseLogger{w: w})
}

type gooseLogger struct {
	w io.Writer
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	_, _ = fmt.Fprintf(l.w, format+"\n", v...)
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	_, _ = fmt.Fprintf(l.w, format, v...)
}
