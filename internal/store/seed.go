package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-doctype/pkg/model"
	"github.com/goliatone/go-doctype/pkg/schema"
)

// SeedUser is an account created when the User table is empty.
type SeedUser struct {
	Username string
	Password string
	IsAdmin  bool
	Role     string
}

// SeedOption configures Seed.
type SeedOption func(*seedConfig)

type seedConfig struct {
	users []SeedUser
	hash  func(string) (string, error)
}

// WithUsers seeds accounts, hashing each password with hash.
func WithUsers(hash func(string) (string, error), users ...SeedUser) SeedOption {
	return func(cfg *seedConfig) {
		cfg.hash = hash
		cfg.users = append(cfg.users, users...)
	}
}

// Seed creates the doctypes and documents of seeds that are not stored yet.
// Existing doctypes are left untouched. Users are only created while the
// User table is empty.
func (s *Store) Seed(ctx context.Context, seeds *schema.Store, opts ...SeedOption) error {
	cfg := &seedConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	for _, dt := range seeds.Doctypes() {
		if _, err := s.GetDoctype(ctx, dt.Name); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		dt := dt
		if err := s.CreateDoctype(ctx, &dt); err != nil {
			return fmt.Errorf("store: seed doctype %s: %w", dt.Name, err)
		}
	}

	created := 0
	for _, doc := range seeds.Documents() {
		_, err := s.FindDocument(ctx, doc.Doctype, doc.Key, doc.KeyValue())
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		record := model.Document{DoctypeName: doc.Doctype, Data: doc.Data}
		if err := s.CreateDocument(ctx, &record); err != nil {
			return fmt.Errorf("store: seed %s %v: %w", doc.Doctype, doc.KeyValue(), err)
		}
		created++
	}

	users, err := s.seedUsers(ctx, cfg)
	if err != nil {
		return err
	}

	s.log.Info("seed complete", zap.Int("documents", created), zap.Int("users", users))
	return nil
}

func (s *Store) seedUsers(ctx context.Context, cfg *seedConfig) (int, error) {
	if len(cfg.users) == 0 {
		return 0, nil
	}
	if cfg.hash == nil {
		return 0, errors.New("store: seed users: password hasher is required")
	}

	count, err := s.CountDocuments(ctx, model.UserDoctype)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	for _, user := range cfg.users {
		hashed, err := cfg.hash(user.Password)
		if err != nil {
			return 0, fmt.Errorf("store: seed user %s: %w", user.Username, err)
		}
		record := model.Document{
			DoctypeName: model.UserDoctype,
			Data: map[string]any{
				"username": user.Username,
				"password": hashed,
				"is_admin": user.IsAdmin,
				"role":     user.Role,
			},
		}
		if err := s.CreateDocument(ctx, &record); err != nil {
			return 0, fmt.Errorf("store: seed user %s: %w", user.Username, err)
		}
	}
	return len(cfg.users), nil
}
