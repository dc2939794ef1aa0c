package main

import (
	"fmt"
	"log"
	"os"

	"github.com/scentmatch/backend/config"
	httpDelivery "github.com/scentmatch/backend/internal/delivery/http"
	"github.com/scentmatch/backend/internal/domain"
	"github.com/scentmatch/backend/internal/infrastructure/cache"
	"github.com/scentmatch/backend/internal/infrastructure/oracle"
	"github.com/scentmatch/backend/internal/infrastructure/store"
	"github.com/scentmatch/backend/internal/infrastructure/webhook"
	"github.com/scentmatch/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting ScentMatch Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Core matching pipeline
	normalizer := usecase.NewNormalizer(cfg.Lexicon.Synonyms)
	extractor := usecase.NewExtractor(normalizer, usecase.Lexicon{
		Brands:         cfg.Lexicon.Brands,
		Synonyms:       cfg.Lexicon.Synonyms,
		SampleKeywords: cfg.Lexicon.SampleKeywords,
		TesterKeywords: cfg.Lexicon.TesterKeywords,
		SetKeywords:    cfg.Lexicon.SetKeywords,
		MaleKeywords:   cfg.Lexicon.MaleKeywords,
		FemaleKeywords: cfg.Lexicon.FemaleKeywords,
	})
	log.Printf("Lexicon: %d brands, %d synonyms", len(cfg.Lexicon.Brands), len(cfg.Lexicon.Synonyms))

	// Arbitration oracle: one client per API key, tried in order, with a
	// verdict cache in front. No keys disables arbitration entirely.
	arbitrationOracle := buildOracle(cfg)

	// History store
	var history domain.HistoryRepository
	if cfg.Store.Path != "" {
		sqliteStore, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to open history store: %v", err)
		}
		defer sqliteStore.Close()
		history = sqliteStore
		log.Printf("History store: %s", cfg.Store.Path)
	} else {
		log.Printf("History store disabled")
	}

	// Outbound webhooks
	var notifier domain.Notifier
	if cfg.Webhook.PriceUpdatesURL != "" || cfg.Webhook.NewProductsURL != "" {
		notifier = webhook.NewClient(cfg.Webhook.PriceUpdatesURL, cfg.Webhook.NewProductsURL, cfg.Webhook.Timeout)
		log.Printf("Webhooks configured")
	}

	service := usecase.NewAnalysisService(normalizer, extractor, arbitrationOracle, usecase.AnalysisConfig{
		AcceptThreshold:    cfg.Matching.AcceptThreshold,
		HighConfidence:     cfg.Matching.HighConfidence,
		ReviewThreshold:    cfg.Matching.ReviewThreshold,
		LooseThreshold:     cfg.Matching.LooseThreshold,
		ExistsThreshold:    cfg.Matching.ExistsThreshold,
		PriceTolerance:     cfg.Matching.PriceTolerance,
		ShortlistSize:      cfg.Matching.ShortlistSize,
		SizeCutoffML:       cfg.Matching.SizeCutoffML,
		SizeToleranceML:    cfg.Matching.SizeToleranceML,
		OracleBatchSize:    cfg.Oracle.BatchSize,
		OracleFallback:     cfg.Oracle.Fallback,
		EnableDebugLogging: cfg.Matching.EnableDebugLogging,
	})

	log.Printf("Matching: accept=%.0f, high=%.0f, tolerance=%.1f, shortlist=%d",
		cfg.Matching.AcceptThreshold,
		cfg.Matching.HighConfidence,
		cfg.Matching.PriceTolerance,
		cfg.Matching.ShortlistSize)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(service, httpDelivery.NewRegistry(), history, notifier)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildOracle assembles the provider chain from configuration. Returns nil
// when no API keys are configured.
func buildOracle(cfg *config.Config) domain.ArbitrationOracle {
	if len(cfg.Oracle.APIKeys) == 0 {
		log.Printf("WARNING: no oracle API keys configured - ambiguous matches take the %q fallback", cfg.Oracle.Fallback)
		return nil
	}

	clients := make([]domain.ArbitrationOracle, 0, len(cfg.Oracle.APIKeys))
	for _, key := range cfg.Oracle.APIKeys {
		client := oracle.NewClient(oracle.ClientConfig{
			APIKey:            key,
			BaseURL:           cfg.Oracle.BaseURL,
			Model:             cfg.Oracle.Model,
			MaxRetries:        cfg.Oracle.MaxRetries,
			Timeout:           cfg.Oracle.Timeout,
			RequestsPerMinute: cfg.Oracle.RequestsPerMinute,
		})
		if cfg.Server.Environment == "development" {
			client.SetDebug(true)
		}
		clients = append(clients, client)
	}
	log.Printf("Oracle: %s via %s (%d keys)", cfg.Oracle.Model, cfg.Oracle.BaseURL, len(clients))

	return oracle.NewCached(oracle.NewChain(clients...), cache.NewMemoryCache(), cfg.Cache.TTL)
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
