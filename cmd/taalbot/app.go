package main

import (
	"context"
	"fmt"

	"taalbot/internal/config"
	"taalbot/internal/dailyword"
	"taalbot/internal/dispatch"
	"taalbot/internal/relay"
	"taalbot/internal/session"
	"taalbot/internal/store"
)

// app holds the wired tutoring core for one process.
type app struct {
	cfg   *config.Config
	store *store.Store
	relay *relay.Relay
}

// buildApp loads config and constructs the store, dispatcher, session layer,
// generator and relay.
func buildApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if modelID != "" {
		cfg.DefaultModel = modelID
	}

	st, err := store.New(cfg.DatabasePath, logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	dispatcher := dispatch.New(cfg.ModelTable(), cfg.Credentials(), logger.Named("dispatch"))
	sessions := session.New(st, cfg.SystemPrompt, cfg.HistoryWindow, logger.Named("session"))
	generator := dailyword.New(st, dispatcher, cfg.DailyWordModel(), dailyword.Options{
		MaxAttempts:    cfg.DailyWord.MaxAttempts,
		ExclusionLimit: cfg.DailyWord.ExclusionLimit,
	}, logger.Named("dailyword"))

	r, err := relay.New(sessions, dispatcher, generator, st, consoleMessenger{}, cfg.DefaultModel, logger.Named("relay"))
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: st, relay: r}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("failed to close store")
	}
}

// consoleMessenger delivers broadcast text to stdout, tagged with the target
// conversation. It stands in for a real chat transport.
type consoleMessenger struct{}

func (consoleMessenger) SendText(ctx context.Context, conversationID, text string) error {
	_, err := fmt.Printf("[%s] %s\n", conversationID, text)
	return err
}
