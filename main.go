package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/crack-kitty/claudememkeep/internal/configs"
	"github.com/crack-kitty/claudememkeep/internal/httpserver"
	"github.com/crack-kitty/claudememkeep/internal/logger"
	"github.com/crack-kitty/claudememkeep/internal/server"
	"github.com/crack-kitty/claudememkeep/internal/storage"
)

func main() {
	transport := flag.String("transport", "", "Transport mode: stdio or http (overrides MCP_TRANSPORT)")
	port := flag.Int("port", 0, "HTTP port, only used with --transport http (overrides HTTP_PORT)")
	flag.Parse()

	logger.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	cfg, err := configs.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if *transport != "" {
		cfg.Transport = *transport
	}
	if *port != 0 {
		cfg.HTTPPort = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	// The store opens lazily on first use so the server starts even while
	// the database is still coming up.
	provider := storage.NewProvider(cfg.StoreOptions())
	defer func() {
		if err := provider.Close(); err != nil {
			log.Error().Err(err).Msg("close store")
		}
	}()

	srv := server.New(provider, cfg.RequestTimeout)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch cfg.Transport {
	case configs.TransportStdio:
		log.Info().Str("driver", cfg.StoreDriver).Msg("memory server starting (stdio)")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("server error")
		}
	case configs.TransportHTTP:
		hs := httpserver.New(srv, provider, httpserver.Options{
			Port:      cfg.HTTPPort,
			AuthToken: cfg.AuthToken,
		})
		if cfg.AuthToken == "" {
			log.Warn().Msg("MCP_AUTH_TOKEN is empty, /mcp is unauthenticated")
		}
		if err := hs.Run(ctx); err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}
}
