package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"woosync/internal/catalog"
	"woosync/internal/config"
	"woosync/internal/history"
	"woosync/internal/logging"
	"woosync/internal/namecache"
	"woosync/internal/wc"
	"woosync/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"woocommerce_configured", cfg.Woo.Configured(),
		"default_mapping", cfg.Upload.DefaultMappingPath,
	)

	runs, err := history.Open(cfg.History.Path)
	if err != nil {
		slog.Error("failed to open run history", "error", err)
		os.Exit(1)
	}
	defer runs.Close()

	// The remote-store surfaces stay disabled when credentials are absent;
	// the transform surface works either way.
	var (
		products catalog.ProductAPI
		names    *namecache.Cache
		exporter *catalog.Exporter
	)
	if cfg.Woo.Configured() {
		client := wc.New(cfg.Woo.URL, cfg.Woo.ConsumerKey, cfg.Woo.ConsumerSecret, cfg.Woo.Timeout)
		products = client
		exporter = catalog.NewExporter(client, cfg.Export.Dir)

		names = namecache.New(client, cfg.Cache.Dir)
		if err := names.Load(context.Background()); err != nil {
			slog.Error("failed to load name cache", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("WooCommerce credentials not set; sync, backup and cache refresh are disabled")
	}

	server := web.NewServer(cfg, products, names, exporter, runs)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
