package main

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/spf13/pflag"

	"jarvis/internal/actions"
	"jarvis/internal/assistant"
	"jarvis/internal/audio"
	"jarvis/internal/config"
	"jarvis/internal/engine"
	"jarvis/internal/logging"
	"jarvis/internal/memory"
	"jarvis/internal/prompt"
	"jarvis/internal/proxy"
	"jarvis/internal/server"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, cli.ErrHelp) {
		return
	}
	if err != nil {
		logging.Setup(os.Stderr, "info")
		log.Error("Fatal error: invalid configuration", "err", err)
		os.Exit(1)
	}

	logging.Setup(os.Stderr, cfg.LogLevel)
	log.Info("Booting up", "mode", cfg.Mode, "provider", cfg.Provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient, err := proxy.NewClient(cfg.Proxy, 0)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy, "err", err)
		os.Exit(1)
	}

	eng, err := engine.New(ctx, engine.Options{
		Provider:   cfg.Provider,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
		HTTPClient: httpClient,
	})
	if err != nil {
		log.Error("Failed to init engine", "err", err)
		os.Exit(1)
	}
	log.Debug("Loaded engine")

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Error("Failed to open history", "err", err)
		os.Exit(1)
	}
	defer closeStore()
	log.Debug("Loaded history", "turns", store.Len())

	catalog := prompt.NewCatalog()
	if cfg.Personas != "" {
		if catalog, err = prompt.LoadCatalog(cfg.Personas); err != nil {
			log.Error("Failed to load personas", "err", err)
			os.Exit(1)
		}
	}
	persona, ok := catalog.Lookup(cfg.Persona)
	if !ok {
		log.Warn("Unknown persona, using Default", "persona", cfg.Persona)
		persona = prompt.Default
	}

	player := audio.NewPlayer(nil)
	handler := actions.NewHandler(
		actions.NewOSLauncher(),
		actions.NewWikipedia(httpClient),
		actions.WithPlayer(player),
		actions.WithMusicDir(cfg.MusicDir),
	)

	asst, err := assistant.New(store, prompt.NewBuilder(catalog), eng, handler)
	if err != nil {
		log.Error("Invalid command table", "err", err)
		os.Exit(1)
	}

	s := &session{
		asst:    asst,
		store:   store,
		catalog: catalog,
		persona: persona,
		cfg:     cfg,
		player:  player,
	}
	log.Info("Boot up - successful")

	switch cfg.Mode {
	case config.ModeText:
		err = s.runText(ctx, os.Stdin, os.Stdout)
	case config.ModeVoice:
		err = s.runVoice(ctx)
	case config.ModeDaemon:
		err = s.runDaemon(ctx)
	case config.ModeWS:
		err = server.Serve(ctx, cfg.Listen, server.NewHandler(asst, catalog, persona, nil))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Stopped with error", "err", err)
		os.Exit(1)
	}
}

func openStore(cfg config.Config) (*memory.Store, func(), error) {
	if cfg.Redis == "" {
		return memory.Open(memory.NewFileBackend(cfg.History)), func() {}, nil
	}

	b, err := memory.NewRedisBackend(cfg.Redis, memory.WithKey(cfg.RedisKey))
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return memory.Open(b), func() { b.Close() }, nil
}
