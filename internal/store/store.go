// Package store persists doctypes and their documents in SQLite. Meta tables
// describe each doctype; every doctype also owns a table named "tab"+Name
// whose columns follow its fields.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a doctype or document does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a doctype name is already taken.
	ErrDuplicate = errors.New("store: duplicate")
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for migrations and seeding.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.log = logger
		}
	}
}

// Store is the SQLite backed repository.
type Store struct {
	db  *sqlx.DB
	log *zap.Logger
	sql sq.StatementBuilderType
}

// Open connects to the database at path (":memory:" works), applies
// migrations and returns a ready store.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{
		log: zap.NewNop(),
		sql: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	db, err := sqlx.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// SQLite has a single writer; one connection also keeps ":memory:"
	// databases alive across queries.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}
	if err := migrate(ctx, db.DB, s.log); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.db = db
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

func (s *Store) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func exec(ctx context.Context, q sqlx.ExecerContext, b sq.Sqlizer, what string) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("store: build %s: %w", what, err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		if isUnique(err) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicate, what)
		}
		return 0, fmt.Errorf("store: %s: %w", what, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		return id, nil
	}
	return 0, nil
}

func isUnique(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// quoteIdent quotes a table or column name. Names are validated identifiers
// before they reach SQL; quoting keeps keywords like "order" usable.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
