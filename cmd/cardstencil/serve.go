// serve.go — HTTP API wiring: configuration, stores and renderer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/xob0t/CardStencil/clients/server"
	"github.com/xob0t/CardStencil/internal/config"
	"github.com/xob0t/CardStencil/pkg/render"
	"github.com/xob0t/CardStencil/pkg/store"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var envPath string
	fs.StringVar(&envPath, "env", "", "Path to .env file (default .env)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := setup(envPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	srv, err := server.New(ctx, server.Options{
		Renderer:  render.New(ctx, cfg.RenderOptions()),
		Templates: stores.templates,
		Members:   stores.members,
		Cards:     store.CardSink{Dir: cfg.CardDir},
		Logger:    log,
	})
	if err != nil {
		return err
	}

	err = server.Run(ctx, cfg.Listen, srv, log)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type stores struct {
	templates store.TemplateStore
	members   store.MemberSource
	closers   []io.Closer
}

func (s *stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// openStores selects the template store backend. Member profiles come
// from DATABASE_URL whenever it is set, whatever holds the template.
func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	s := &stores{}

	var db *store.SQLStore
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.OpenSQL(ctx, sqlDialect(cfg), cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db)
		if err := db.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.members = db
	}

	switch cfg.TemplateStore {
	case config.StoreFile:
		s.templates = store.NewFileStore(cfg.TemplateFile)
	case config.StorePostgres, config.StoreMySQL:
		s.templates = db
	case config.StoreRedis:
		rs, err := store.OpenRedis(ctx, store.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, rs)
		s.templates = rs
	default:
		return nil, fmt.Errorf("unknown template store %q", cfg.TemplateStore)
	}
	return s, nil
}

// sqlDialect follows TEMPLATE_STORE when it names a database, and the DSN
// otherwise.
func sqlDialect(cfg config.Config) store.Dialect {
	switch {
	case cfg.TemplateStore == config.StoreMySQL:
		return store.MySQL
	case cfg.TemplateStore == config.StorePostgres,
		strings.HasPrefix(cfg.DatabaseURL, "postgres://"),
		strings.HasPrefix(cfg.DatabaseURL, "postgresql://"):
		return store.Postgres
	}
	return store.MySQL
}
