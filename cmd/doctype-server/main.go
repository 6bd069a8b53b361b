package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/goliatone/go-doctype/internal/auth"
	"github.com/goliatone/go-doctype/internal/config"
	"github.com/goliatone/go-doctype/internal/logging"
	"github.com/goliatone/go-doctype/internal/server"
	"github.com/goliatone/go-doctype/internal/store"
	"github.com/goliatone/go-doctype/pkg/render/pages"
	"github.com/goliatone/go-doctype/pkg/schema"
)

func main() {
	env := flag.String("env", os.Getenv("APP_ENV"), "environment name, selects .env.<env>")
	configDir := flag.String("config-dir", ".", "directory holding .env files")
	seedDir := flag.String("seeds", "", "extra seed directory (YAML/JSON doctypes)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *env, *configDir, *seedDir); err != nil {
		log.Fatalf("doctype-server: %v", err)
	}
}

func run(ctx context.Context, env, configDir, seedDir string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	v, err := config.New(env, configDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := store.Open(ctx, cfg.Database.Path, store.WithLogger(logger))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := seed(ctx, db, cfg, schema.DefaultFS()); err != nil {
		return err
	}
	if seedDir != "" {
		if err := seed(ctx, db, cfg, os.DirFS(seedDir)); err != nil {
			return err
		}
	}

	renderer, err := pages.New(pages.WithTemplateDir(cfg.Server.TemplateDir))
	if err != nil {
		return err
	}
	authn := auth.New(db, []byte(cfg.Auth.SessionKey),
		auth.WithSecureCookie(cfg.Auth.SecureCookie),
		auth.WithLogger(logger),
	)
	srv := server.New(db, authn, renderer, server.WithLogger(logger))

	logger.Info("starting",
		zap.String("env", cfg.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("db", cfg.Database.Path),
	)
	return srv.Start(ctx, cfg.Server.Addr)
}

func seed(ctx context.Context, db *store.Store, cfg *config.Config, fsys fs.FS) error {
	seeds, err := schema.LoadFS(fsys)
	if err != nil {
		return fmt.Errorf("load seeds: %w", err)
	}
	admin := store.SeedUser{
		Username: "admin",
		Password: cfg.Auth.AdminPassword,
		IsAdmin:  true,
		Role:     "Admin",
	}
	return db.Seed(ctx, seeds, store.WithUsers(auth.Hasher(cfg.Auth.BcryptCost), admin))
}
