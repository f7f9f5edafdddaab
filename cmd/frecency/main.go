// Copyright 2025 The Frecency Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the frecency ranking server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

Frecency ranks search results by how often and how recently they were picked
after similar queries. It can operate as a MessagePack IPC server so a
launcher or editor plugin can record selections and reorder its results, or
as a CLI application for testing and debugging.

# Usage

Start the server with default settings:

	frecency

Use a SQLite store and enable debug mode:

	frecency -store sqlite -path ~/.local/share/frecency.db -d

Run in CLI mode for interactive testing:

	frecency -c -store memory

# Configuration

Runtime configuration is read from a TOML file, created with defaults if it
doesn't exist:

	[frecency]
	key = "default"
	timestamps_limit = 10
	recent_selections_limit = 100
	id_attribute = "_id"

	[storage]
	backend = "file"
	path = ""

	[server]
	max_items = 1000

Flags take precedence over the file.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout, one map per
request. See package server for the full list of ops.

	{"id": "1", "op": "save", "q": "brad", "sel": "brad vogel"}
	{"id": "2", "op": "sort", "q": "br", "items": [{"_id": "brad vogel"}, {"_id": "simon"}]}

# CLI Mode

CLI mode reads one command per line from stdin:

	save brad vogel | brad
	sort br | simon, brad vogel
	score br | brad vogel
	dump

# Command Line Flags

	-version
	    Show current version
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-config string
	    Path to a custom config file
	-key string
	    Namespace of the stored record
	-store string
	    Storage backend: memory, file, sqlite or redis
	-path string
	    Directory (file) or database path (sqlite) of the store
	-redis string
	    Redis address for the redis backend
*/
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bastiangx/frecency/internal/cli"
	"github.com/bastiangx/frecency/internal/logger"
	"github.com/bastiangx/frecency/internal/utils"
	"github.com/bastiangx/frecency/pkg/config"
	"github.com/bastiangx/frecency/pkg/frecency"
	"github.com/bastiangx/frecency/pkg/server"
	"github.com/bastiangx/frecency/pkg/storage"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.3.0-beta"
	AppName = "frecency"
	gh      = "https://github.com/bastiangx/frecency"
)

// closers are released on exit, including exits from a signal.
var closers []io.Closer

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		closeAll()
		os.Exit(0)
	}()
}

func closeAll() {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Warnf("Closing store: %v", err)
		}
	}
}

// main wires config, storage and the frecency store, then hands over to
// the server or the CLI.
func main() {
	sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	configFile := flag.String("config", "", "Path to custom config file")
	key := flag.String("key", "", "Namespace of the stored record (overrides config)")
	store := flag.String("store", "", "Storage backend: memory, file, sqlite or redis (overrides config)")
	storePath := flag.String("path", "", "Store directory or database path (overrides config)")
	redisAddr := flag.String("redis", "", "Redis address (overrides config)")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger.Setup(*debugMode)

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}

	appConfig, configPath, err := config.LoadConfigWithPriority(*configFile, pathResolver)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(appConfig, *key, *store, *storePath, *redisAddr)

	baseDir := pathResolver.GetConfigDir()
	if configPath != "" {
		baseDir = filepath.Dir(configPath)
	}
	storeOpts := appConfig.StorageOptions(baseDir)
	log.Debug("Opening store", "backend", storeOpts.Backend, "path", storeOpts.Path)

	provider, closer, err := storage.Open(storeOpts)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", storeOpts.Backend, err)
	}
	closers = append(closers, closer)
	defer closeAll()

	opts := appConfig.Options()
	opts.Storage = provider
	opts.Logger = logger.New(AppName)
	f, err := frecency.New(opts)
	if err != nil {
		log.Errorf("Failed to init frecency: %v", err)
		return
	}

	if *cliMode {
		log.SetReportTimestamp(false)
		inputHandler := cli.NewInputHandler(f, appConfig.Frecency.IDAttribute, appConfig.CLI.DefaultQuery)
		if err := inputHandler.Start(); err != nil {
			log.Errorf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(f, server.Config{MaxItems: appConfig.Server.MaxItems})
	showStartupInfo(f.StorageKey(), storeOpts)

	if err := srv.Start(); err != nil {
		log.Errorf("Server stopped: %v", err)
	}
}

// applyFlags overrides config values with the flags that were set.
func applyFlags(cfg *config.Config, key, store, path, redisAddr string) {
	if key != "" {
		cfg.Frecency.Key = key
	}
	if store != "" {
		cfg.Storage.Backend = store
	}
	if path != "" {
		cfg.Storage.Path = path
	}
	if redisAddr != "" {
		cfg.Storage.RedisAddr = redisAddr
	}
}

func printVersion() {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ Frecency ] Ranks what you pick, by how often and how recently!")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(key string, opts storage.Options) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("store: %s ( %s )", opts.Backend, utils.GetAbsolutePath(opts.Path))
	log.Infof("key: %s", key)
	log.Info("status: ready")

	log.SetLevel(currentLevel)
}
