package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/myassistant/internal/appstore"
	"github.com/kalambet/myassistant/internal/config"
	"github.com/kalambet/myassistant/internal/profile"
	"github.com/kalambet/myassistant/internal/remote"
	"github.com/kalambet/myassistant/internal/storage"
	"github.com/kalambet/myassistant/internal/tokens"
)

// app is the client side of myassistant: the local store and everything
// that reads or writes it.
type app struct {
	cfg     config.Config
	db      *storage.Store
	store   *appstore.Store
	tokens  *tokens.Manager
	fetcher *remote.Fetcher
	profile *profile.Manager
	now     func() time.Time
}

var openApp = func() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	db, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	a := newApp(cfg, db)
	if err := a.store.MigrateHealthGoals(); err != nil {
		slog.Warn("could not migrate health goals", "error", err)
	}
	return a, nil
}

func newApp(cfg config.Config, db *storage.Store) *app {
	store := appstore.New(db)
	store.OnStatusChange(func(s appstore.SyncStatus) {
		slog.Debug("sync status", "status", s)
	})

	mgr := tokens.NewManager(store.AuthSlot(), tokens.NewRefreshClient(cfg.Client.ServerURL))
	return &app{
		cfg:     cfg,
		db:      db,
		store:   store,
		tokens:  mgr,
		fetcher: remote.NewFetcher(cfg.Client.ServerURL, mgr),
		profile: profile.NewManager(store),
		now:     time.Now,
	}
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		slog.Warn("closing storage", "error", err)
	}
}

// withApp opens the store for the duration of fn.
func withApp(fn func(a *app) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
