package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/platewise/platewise/internal/analysis"
	"github.com/platewise/platewise/internal/api"
	"github.com/platewise/platewise/internal/breaker"
	"github.com/platewise/platewise/internal/cache"
	"github.com/platewise/platewise/internal/config"
	"github.com/platewise/platewise/internal/nutrition"
	"github.com/platewise/platewise/internal/provider"
	"github.com/platewise/platewise/internal/ratelimit"
	"github.com/platewise/platewise/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the platewise server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running platewise server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show platewise system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "platewise.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func setupLogging(cfg config.LogConfig) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	var sink io.Writer = os.Stderr
	if cfg.File != "" {
		sink = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{Level: logLevel})))
}

func parseDuration(raw string, fallback time.Duration, what string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", "setting", what, "value", raw, "default", fallback)
		return fallback
	}
	return d
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "platewise version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log)

	if cfg.Server.Token == "" {
		return errors.New("missing required config: server API token (PLATEWISE_SERVER_TOKEN)")
	}

	// Refuse to double-start: probe the health endpoint before claiming the
	// PID file.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("platewise is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("platewise is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build provider adapters in priority order.
	creds := provider.Credentials{
		OpenAIKey:     cfg.Providers.OpenAIKey,
		GeminiKey:     cfg.Providers.GeminiKey,
		OpenRouterKey: cfg.Providers.OpenRouterKey,
	}
	var providers []provider.Provider
	for _, name := range cfg.ConfiguredProviders() {
		p, err := provider.New(name, creds)
		if err != nil {
			return fmt.Errorf("building provider %s: %w", name, err)
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return errors.New("no providers configured: set at least one API key")
	}
	slog.Info("providers configured", "order", cfg.ConfiguredProviders(), "premium_enabled", cfg.Providers.PremiumEnabled)

	// Open storage. A broken data dir degrades to in-memory rate limiting and
	// caching rather than refusing to start.
	var (
		store        *storage.Store
		counterStore ratelimit.CounterStore
		cacheStore   cache.Store
	)
	store, err = storage.Open(cfg.Storage.DataDir)
	if err != nil {
		slog.Warn("opening storage failed, falling back to in-memory counters and cache", "error", err)
		memCounters := ratelimit.NewMemoryStore()
		go memCounters.RunSweeper(ctx, time.Minute)
		counterStore = memCounters
		cacheStore = cache.NewMemoryStore()
		store = nil
	} else {
		defer func() {
			if err := store.Close(); err != nil {
				slog.Warn("closing storage", "error", err)
			}
		}()
		counterStore = ratelimit.NewSQLiteStore(store.DB())
		cacheStore = cache.NewSQLiteStore(store.DB())
	}

	limiter := ratelimit.New(counterStore, ratelimit.Windows(cfg.RateLimit.PerMinute, cfg.RateLimit.PerDay), nil)

	ttl := parseDuration(cfg.Cache.TTL, cache.DefaultTTL, "cache.ttl")
	responseCache := cache.New(cacheStore, ttl, nil)
	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				responseCache.PurgeExpired(ctx)
			}
		}
	}()

	recovery := parseDuration(cfg.Breaker.RecoveryTime, breaker.DefaultRecoveryTime, "breaker.recovery_time")
	premiumBreaker := breaker.For(analysis.PremiumFeature, cfg.Breaker.FailureThreshold, recovery)

	var enricher *nutrition.Enricher
	if cfg.Nutrition.FDCAPIKey != "" {
		enricher = nutrition.NewEnricher(nutrition.NewFDCClient(cfg.Nutrition.FDCAPIKey), cfg.Nutrition.ConfidenceThreshold)
	} else {
		slog.Info("no FoodData Central API key, enrichment uses the built-in nutrition table")
		enricher = nutrition.NewEnricher(nil, cfg.Nutrition.ConfidenceThreshold)
	}

	service := analysis.NewService(analysis.Deps{
		Providers:      providers,
		Primary:        cfg.Providers.Primary,
		PremiumEnabled: cfg.Providers.PremiumEnabled,
		Breaker:        premiumBreaker,
		Limiter:        limiter,
		Cache:          responseCache,
		Enricher:       enricher,
		Store:          store,
	})

	handler := api.NewHandler(api.Deps{
		Service:         service,
		Token:           cfg.Server.Token,
		TrustedIPHeader: cfg.RateLimit.TrustedIPHeader,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server on stdio transport.
	mcpSrv := api.NewMCPServer(api.MCPDeps{Service: service})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "platewise listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("platewise is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop platewise (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to platewise (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Providers", "%s", strings.Join(cfg.ConfiguredProviders(), " > "))
	if cfg.Providers.PremiumEnabled {
		printStatus("Premium tier", "enabled")
	} else {
		printStatus("Premium tier", "disabled")
	}
	printStatus("Rate limit", "%d/min, %d/day", cfg.RateLimit.PerMinute, cfg.RateLimit.PerDay)
	if cfg.Nutrition.FDCAPIKey != "" {
		printStatus("Nutrition DB", "FoodData Central")
	} else {
		printStatus("Nutrition DB", "built-in table only")
	}
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
