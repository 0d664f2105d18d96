package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"github.com/vitrina/vitrina/pkg/api"
	"github.com/vitrina/vitrina/pkg/config"
	"github.com/vitrina/vitrina/pkg/core"
	"github.com/vitrina/vitrina/pkg/log"
	"github.com/vitrina/vitrina/pkg/realtime"
	"github.com/vitrina/vitrina/pkg/scraper"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API and the scraping scheduler",
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"))
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	logger := log.For("serve")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (or VITRINA_JWT_SECRET) must be set to serve")
	}

	registry := core.GetGlobalRegistry()
	if err := createSourcesFromConfig(registry, cfg); err != nil {
		return fmt.Errorf("creating sources: %w", err)
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Warnf("closing registry: %v", err)
		}
	}()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warnf("closing store: %v", err)
		}
	}()

	engine, err := buildEngine(ctx, store)
	if err != nil {
		return fmt.Errorf("building search engine: %w", err)
	}

	hub := realtime.NewHub(64)

	scheduler := scraper.NewScheduler(scraper.Config{OptimizeInterval: time.Hour}, store, engine, hub)
	defer func() {
		if err := scheduler.Close(); err != nil {
			logger.Warnf("closing scheduler: %v", err)
		}
	}()

	for _, name := range cfg.ListSources() {
		src, err := registry.GetSource(name)
		if err != nil {
			return fmt.Errorf("looking up source %s: %w", name, err)
		}
		interval := cfg.GetSourceInterval(name)
		logger.Infof("scheduling source %s every %v", name, interval)
		if err := scheduler.AddSource(name, src, interval); err != nil {
			return fmt.Errorf("adding source %s to scheduler: %w", name, err)
		}
	}

	schedulerCtx, schedulerCancel := context.WithCancel(ctx)
	defer schedulerCancel()

	if err := scheduler.Start(schedulerCtx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	server := api.NewServer(registry, store, engine, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL.Duration)
	server.SetFirehoseHub(hub)

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           api.CorsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	httpErrCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on http://%s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var cfgMutex sync.Mutex
	currentConfig := cfg

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("creating config file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				logger.Warnf("closing config file watcher: %v", err)
			}
		}()
		if err := watcher.Add(configPath); err != nil {
			logger.Warnf("watching config file %s: %v", configPath, err)
		} else {
			logger.Infof("watching config file for changes: %s", configPath)
		}
	}

	fmt.Println("Server started. Press Ctrl+C to stop, send SIGHUP to reload sources, or edit the config file.")

	shutdown := func() error {
		fmt.Println("\nShutting down...")
		schedulerCancel()
		scheduler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}

	for {
		select {
		case err := <-httpErrCh:
			schedulerCancel()
			scheduler.Stop()
			return fmt.Errorf("http server: %w", err)
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				logger.Infof("received SIGHUP, reloading source configuration")
				if err := reloadSources(configPath, registry, scheduler, &cfgMutex, &currentConfig); err != nil {
					logger.Errorf("reloading configuration: %v", err)
				} else {
					logger.Infof("configuration reloaded")
				}
			case syscall.SIGINT, syscall.SIGTERM:
				return shutdown()
			}
		case event, ok := <-watcher.Events:
			if !ok {
				continue
			}
			// Editors often replace the file instead of writing in place.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				logger.Infof("config file changed (%s), reloading source configuration", event.Op)

				if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					time.Sleep(200 * time.Millisecond)
					if _, err := os.Stat(configPath); os.IsNotExist(err) {
						logger.Warnf("config file removed and not replaced, skipping reload")
						continue
					}
					if err := watcher.Add(configPath); err != nil {
						logger.Warnf("re-adding config file to watcher: %v", err)
					}
				} else {
					time.Sleep(100 * time.Millisecond)
				}

				if err := reloadSources(configPath, registry, scheduler, &cfgMutex, &currentConfig); err != nil {
					logger.Errorf("reloading configuration after file change: %v", err)
				} else {
					logger.Infof("configuration reloaded after file change")
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				continue
			}
			logger.Warnf("config file watcher error: %v", err)
		}
	}
}

// reloadSources swaps the scheduler's source set for the one in the config
// file. Server settings (listen address, auth) are not reloadable.
func reloadSources(configPath string, registry *core.Registry, scheduler *scraper.Scheduler, cfgMutex *sync.Mutex, currentConfig **config.Config) error {
	cfgMutex.Lock()
	defer cfgMutex.Unlock()

	logger := log.For("serve")

	newCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading new config: %w", err)
	}

	oldCfg := *currentConfig
	for _, name := range oldCfg.ListSources() {
		logger.Infof("removing source %s", name)
		if err := scheduler.RemoveSource(name); err != nil {
			logger.Warnf("removing source %s from scheduler: %v", name, err)
		}
		if err := registry.RemoveSource(name); err != nil {
			logger.Warnf("removing source %s from registry: %v", name, err)
		}
	}

	if err := createSourcesFromConfig(registry, newCfg); err != nil {
		return fmt.Errorf("creating sources: %w", err)
	}
	for _, name := range newCfg.ListSources() {
		src, err := registry.GetSource(name)
		if err != nil {
			return fmt.Errorf("looking up source %s: %w", name, err)
		}
		logger.Infof("adding source %s", name)
		if err := scheduler.AddSource(name, src, newCfg.GetSourceInterval(name)); err != nil {
			return fmt.Errorf("adding source %s: %w", name, err)
		}
	}

	*currentConfig = newCfg
	return nil
}
