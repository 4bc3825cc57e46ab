// rexpro - a terminal chat client for a hosted generative AI API.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	core "github.com/rexcorp1/rexpro-ai/internal/chat"
	"github.com/rexcorp1/rexpro-ai/internal/config"
	"github.com/rexcorp1/rexpro-ai/internal/genai"
	"github.com/rexcorp1/rexpro-ai/internal/router"
	"github.com/rexcorp1/rexpro-ai/internal/session"
	"github.com/rexcorp1/rexpro-ai/internal/storage"
	uichat "github.com/rexcorp1/rexpro-ai/internal/ui/chat"
	"github.com/rexcorp1/rexpro-ai/internal/ui/repl"
	"github.com/rexcorp1/rexpro-ai/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		plain       = flag.Bool("plain", false, "plain line mode instead of the TUI")
		showVersion = flag.Bool("version", false, "print version and exit")
		configPath  = flag.String("config", "", "config file path (default ~/.rexpro/config.toml)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("rexpro %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*plain, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(plain bool, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	config.SetGlobal(cfg)

	if cfg.API.Key == "" {
		return fmt.Errorf("no API key configured: set api.key in the config file or REXPRO_API_KEY")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Config hot-reload: edits to the file apply to the next send.
	if path, perr := resolvedConfigPath(configPath); perr == nil {
		go func() {
			if werr := config.Watch(ctx, path, nil); werr != nil && !errors.Is(werr, context.Canceled) {
				log.Printf("config watch disabled: %v", werr)
			}
		}()
	}

	client := genai.NewClient(cfg.API.Key).WithMaxRetries(cfg.API.MaxRetries)
	if cfg.API.BaseURL != "" {
		client = client.WithBaseURL(cfg.API.BaseURL)
	}

	store, db := openStore(cfg)
	if db != nil {
		defer db.Close()
	}

	selector := router.NewSelector()
	if cfg.Models.Default != "" {
		if serr := selector.SetModel(cfg.Models.Default); serr != nil {
			log.Printf("default model %q rejected: %v", cfg.Models.Default, serr)
		}
	}

	orch := core.New(client, store, selector, config.Global)

	if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return repl.New(orch).Run(ctx)
	}

	theme := styles.NewTheme()
	program := tea.NewProgram(uichat.New(theme, orch), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func resolvedConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return config.ConfigPath()
}

// openStore opens the SQLite-backed store and loads persisted sessions.
// A storage failure degrades to an in-memory store rather than refusing
// to start.
func openStore(cfg *config.Config) (*session.Store, *storage.DB) {
	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		p, err := config.DefaultDBPath()
		if err != nil {
			return session.NewStore(nil), nil
		}
		dbPath = p
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		log.Printf("storage unavailable, sessions will not persist: %v", err)
		return session.NewStore(nil), nil
	}

	store := session.NewStore(db)
	sessions, err := db.LoadSessions()
	if err != nil {
		log.Printf("could not load saved sessions: %v", err)
	}
	activeID, err := db.LoadActiveID()
	if err != nil {
		log.Printf("could not load active session: %v", err)
	}
	store.Load(sessions, activeID)
	return store, db
}
