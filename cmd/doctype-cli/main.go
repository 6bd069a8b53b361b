package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/goliatone/go-doctype/internal/config"
	"github.com/goliatone/go-doctype/internal/logging"
	"github.com/goliatone/go-doctype/internal/store"
	"github.com/goliatone/go-doctype/pkg/model"
	"github.com/goliatone/go-doctype/pkg/openapi"
	"github.com/goliatone/go-doctype/pkg/prompt"
	"github.com/goliatone/go-doctype/pkg/render"
)

func main() {
	format := flag.String("format", "yaml", "output format (json, yaml, openapi)")
	output := flag.String("output", "", "output file (stdout if empty)")
	dbPath := flag.String("db", "", "save the doctype into this SQLite database instead of printing it")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, *format, *output, *dbPath)
	stop()

	if errors.Is(err, prompt.ErrAborted) {
		os.Exit(130)
	}
	if err != nil {
		log.Fatalf("doctype-cli: %v", err)
	}
}

func run(ctx context.Context, format, output, dbPath string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	builder, err := prompt.New(prompt.NewSurveyDriver(os.Stderr))
	if err != nil {
		return fmt.Errorf("load editor: %w", err)
	}
	doctype, err := builder.Run(ctx)
	if err != nil {
		return err
	}

	if dbPath != "" {
		return save(ctx, dbPath, doctype)
	}

	registry := render.NewDefaultRegistry()
	registry.MustRegister(openapi.Renderer{})
	renderer, err := registry.Get(format)
	if err != nil {
		return fmt.Errorf("unknown format %q (available: %v): %w", format, registry.List(), err)
	}
	out, err := renderer.Render(ctx, doctype)
	if err != nil {
		return fmt.Errorf("render doctype: %w", err)
	}

	if output == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(output, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("Doctype written to %s\n", output)
	return nil
}

func save(ctx context.Context, dbPath string, doctype model.Doctype) error {
	logger, err := logging.New(config.LogConfig{Level: "warn"}, logging.WithConsole(os.Stderr))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := store.Open(ctx, dbPath, store.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.CreateDoctype(ctx, &doctype); err != nil {
		return fmt.Errorf("save doctype: %w", err)
	}
	fmt.Printf("Doctype %s saved to %s\n", doctype.Name, dbPath)
	return nil
}
