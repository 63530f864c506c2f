package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	mcpadapter "github.com/avasilkov/knowledge-retrieval/internal/adapters/mcp"
	"github.com/avasilkov/knowledge-retrieval/internal/bootstrap"
	"github.com/avasilkov/knowledge-retrieval/internal/config"
	"github.com/avasilkov/knowledge-retrieval/internal/observability/logging"
)

const version = "v0.1.0"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	// Stdout belongs to the MCP stdio transport.
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	server := mcpadapter.NewServer(app.SearchUC, version)
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
