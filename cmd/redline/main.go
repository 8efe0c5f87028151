// Command redline serves the document edit application engine over HTTP
// and, optionally, MCP-over-HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/stencilworks/redline/proposal"
	"github.com/stencilworks/redline/runlog"
	"github.com/stencilworks/redline/service"
)

func main() {
	configPath := env("CONFIG", "")
	logLevel := env("LOG_LEVEL", "info")

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg := &service.Config{}
	if configPath != "" {
		loaded, err := service.LoadConfigFile(configPath)
		if err != nil {
			slog.Error("load config", "path", configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if addr := env("LISTEN_ADDR", ""); addr != "" {
		cfg.ListenAddr = addr
	}
	if dbPath := env("DB_PATH", ""); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if url := env("PROPOSAL_URL", ""); url != "" {
		cfg.Proposal.BaseURL = url
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run audit DB.
	db, err := runlog.Open(cfg.DBPath)
	if err != nil {
		slog.Error("open run db", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Proposal collaborator. Without one, grammar checking returns 503
	// while the direct apply paths keep working.
	var proposer proposal.Proposer
	if cfg.Proposal.BaseURL != "" {
		cfg.Proposal.Logger = logger
		proposer = proposal.NewLLMClient(cfg.Proposal)
	} else {
		slog.Warn("no proposal collaborator configured, grammar checking disabled")
	}

	svc, err := service.New(*cfg, db, proposer, logger)
	if err != nil {
		slog.Error("init service", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	svc.RegisterHTTP(r)

	// Optional MCP transport on the same router.
	if env("MCP_TRANSPORT", "") == "http" {
		mcpServer := mcp.NewServer(&mcp.Implementation{Name: "redline", Version: "1.0.0"}, nil)
		svc.RegisterMCP(mcpServer)
		handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpServer }, nil)
		r.Handle("/mcp", handler)
		slog.Info("MCP transport enabled", "path", "/mcp")
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("redline listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("serve", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
