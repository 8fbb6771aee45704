// Package main provides the MCP server entry point for docgrep.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/docgrep/docgrep/internal/config"
	mcpserver "github.com/docgrep/docgrep/internal/mcp"
	"github.com/docgrep/docgrep/internal/setup"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.LoadDefault()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sys, err := setup.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	defer sys.Close()

	server := mcpserver.NewServer(&mcpserver.Config{
		Engine:  sys.Engine,
		Matcher: sys.Matcher,
	})

	mux := http.NewServeMux()
	mux.Handle("/", mcpserver.NewLandingHandler())
	mux.Handle("/health", mcpserver.NewHealthHandler(mcpserver.HealthFunc(sys.Health)))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))

	port := getEnv("PORT", "8080")
	serverMode := getEnv("SERVER_MODE", "false") == "true"

	if serverMode {
		// HTTP mode: serve MCP over HTTP for remote clients
		addr := "0.0.0.0:" + port
		log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health)", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	} else {
		// Stdio mode: run MCP server over stdin/stdout for local clients
		// Also start HTTP health endpoint in background for local testing
		go func() {
			addr := "0.0.0.0:" + port
			log.Printf("Starting health server on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("Health server error: %v", err)
			}
		}()

		log.Println("Starting docgrep MCP server (stdio mode)...")
		if err := server.Run(ctx); err != nil {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
