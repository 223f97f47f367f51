// SAGA - financial-intelligence article gateway.
// Archives ingested news articles and serves dedup-aware article APIs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/argoslabs/saga/internal/api"
	"github.com/argoslabs/saga/internal/config"
	"github.com/argoslabs/saga/internal/graph"
	"github.com/argoslabs/saga/internal/storage"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().Msg("SAGA - Starting article gateway")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize the article archive (full index scan)
	store, err := storage.NewStore(cfg.ArticleDataDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.ArticleDataDir).Msg("Failed to open article archive")
	}

	// Initialize Graph API client
	var graphClient *graph.Client
	if cfg.GraphAPIURL != "" {
		graphClient = graph.NewClient(cfg.GraphAPIURL, cfg.GraphAPITimeout)
		log.Info().Str("url", cfg.GraphAPIURL).Msg("Graph API client initialized")
	} else {
		log.Warn().Msg("Graph API client not initialized (no URL)")
	}

	// Initialize API server
	apiServer := api.NewServer(store, graphClient, api.HandlerOptions{
		DefaultMinHits: cfg.SearchMinHits,
		MaxLimit:       cfg.SearchMaxLimit,
	}, cfg.HTTPAddr)

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := apiServer.Start(); err != nil {
			log.Error().Err(err).Msg("API server error")
		}
	}()

	log.Info().
		Str("api", cfg.HTTPAddr).
		Msg("SAGA gateway running")

	// Wait for shutdown signal
	<-sigChan
	log.Info().Msg("Shutdown signal received")

	shutdownCtx := context.Background()
	apiServer.Shutdown(shutdownCtx)

	log.Info().Msg("SAGA gateway stopped")
}
