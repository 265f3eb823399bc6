package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"invoicely/backend/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const saveAttempts = 3

// Store keeps one JSONB document per collection key in the documents table.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Printf("[postgres-store] schema at version %d (dirty=%t)", version, dirty)
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return raw, nil
}

// Save upserts every entry in one serializable transaction, retrying on
// serialization conflicts.
func (s *Store) Save(ctx context.Context, entries ...store.Entry) error {
	if err := store.ValidateEntries(entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	var err error
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		err = s.save(ctx, entries)
		if err == nil || !isSerializationFailure(err) {
			return err
		}
		log.Printf("[postgres-store] serialization conflict, retry %d/%d", attempt, saveAttempts)
	}
	return err
}

func (s *Store) save(ctx context.Context, entries []store.Entry) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (key, value, updated_at)
			VALUES ($1, $2::jsonb, now())
			ON CONFLICT (key)
			DO UPDATE SET value = EXCLUDED.value, updated_at = now()
		`, e.Key, string(e.Value)); err != nil {
			return fmt.Errorf("upsert %s: %w", e.Key, err)
		}
	}
	return tx.Commit()
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001"
	}
	return false
}
