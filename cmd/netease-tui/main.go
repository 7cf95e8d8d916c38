package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/xlfish233/netease-tui/internal/audio"
	"github.com/xlfish233/netease-tui/internal/core"
	"github.com/xlfish233/netease-tui/internal/gateway"
	"github.com/xlfish233/netease-tui/internal/state"
	"github.com/xlfish233/netease-tui/internal/transfer"
	"github.com/xlfish233/netease-tui/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real env always wins.
	_ = godotenv.Load()

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share", "netease-tui")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	log, logFile, err := setupLogging(dataDir)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	settings := state.LoadSettings(dataDir)

	// Transfer pool over the on-disk cache.
	cache, err := transfer.NewCache(dataDir, settings.AudioCacheMaxMB*1024*1024,
		log.WithField("component", "cache"))
	if err != nil {
		return fmt.Errorf("open audio cache: %w", err)
	}
	pool := transfer.NewPool(cache, transfer.Config{
		Concurrency:  settings.DownloadConcurrency,
		Retries:      settings.DownloadRetries,
		BackoffMs:    settings.RetryBackoffMs,
		BackoffMaxMs: settings.RetryBackoffMaxMs,
		TimeoutSecs:  settings.HTTPTimeoutSecs,
		ConnectSecs:  settings.HTTPConnectSecs,
	}, log.WithField("component", "transfer"))

	// Audio backend: the sound card, or silence when NO_AUDIO=1.
	var backend audio.Backend
	if os.Getenv("NO_AUDIO") == "1" {
		backend = audio.NewNullBackend()
	} else {
		b, err := audio.NewBeepBackend()
		if err != nil {
			return fmt.Errorf("audio output unavailable (set NO_AUDIO=1 to run without): %w", err)
		}
		backend = b
	}
	engine := audio.NewEngine(backend, pool, settings.Volume, settings.CrossfadeMs,
		log.WithField("component", "audio"))

	// Gateway client + actor.
	client := gateway.NewClient(dataDir, gateway.Config{
		TimeoutSecs: settings.HTTPTimeoutSecs,
		ConnectSecs: settings.HTTPConnectSecs,
	}, log.WithField("component", "gateway"))
	actor := gateway.NewActor(client, log.WithField("component", "gateway"))

	// Reducer core.
	c := core.New(core.Deps{
		DataDir:       dataDir,
		Settings:      settings,
		GatewayHi:     actor.HighPriority(),
		GatewayLo:     actor.LowPriority(),
		GatewayEvents: actor.Events(),
		AudioCommands: engine.Commands(),
		AudioEvents:   engine.Events(),
		Log:           log.WithField("component", "core"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poolDone := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(poolDone)
	}()
	go actor.Run(ctx)
	go engine.Run(ctx)
	go c.Run(ctx)

	log.Info("starting UI")
	uiErr := ui.Run(c.Commands(), c.Events())

	// Shutdown: the core saved its snapshot on Quit; stop the engine,
	// then let the transfer pool finish in flight and persist its index.
	cancel()
	select {
	case <-poolDone:
	case <-time.After(12 * time.Second):
		log.Warn("transfer pool did not drain in time")
	}
	if err := client.SaveSession(); err != nil {
		log.WithError(err).Warn("saving session on exit failed")
	}
	log.Info("bye")
	return uiErr
}

// setupLogging writes a daily logrus file under LOG_DIR (default
// <dataDir>/logs). The terminal belongs to the TUI, so nothing is
// logged to stdout.
func setupLogging(dataDir string) (*logrus.Logger, *os.File, error) {
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = filepath.Join(dataDir, "logs")
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	name := fmt.Sprintf("netease-tui-%s.log", time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Still usable without a log file; just discard.
		log.SetOutput(io.Discard)
		return log, nil, nil
	}
	log.SetOutput(f)
	return log, f, nil
}
