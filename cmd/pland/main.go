package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kyrelim/pland/internal/bot"
	"github.com/kyrelim/pland/internal/briefing"
	"github.com/kyrelim/pland/internal/config"
	"github.com/kyrelim/pland/internal/engine"
	"github.com/kyrelim/pland/internal/enrich"
	"github.com/kyrelim/pland/internal/gateway"
	"github.com/kyrelim/pland/internal/intent"
	"github.com/kyrelim/pland/internal/oracle"
	"github.com/kyrelim/pland/internal/research"
	"github.com/kyrelim/pland/internal/server"
	"github.com/kyrelim/pland/internal/storage"
	"github.com/kyrelim/pland/internal/storage/postgres"
	"github.com/kyrelim/pland/internal/storage/sqlite"
	"github.com/kyrelim/pland/internal/websearch"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	loc := cfg.Location()

	// Storage engine.
	var store storage.EventStore
	switch cfg.Storage.Engine {
	case "postgres":
		store, err = postgres.NewEventStore(cfg.Storage.PostgresDSN)
	default:
		if mkErr := os.MkdirAll(cfg.Storage.DataPath, 0o755); mkErr != nil {
			log.Fatalf("Failed to create data directory: %v", mkErr)
		}
		store, err = sqlite.NewEventStore(cfg.Storage.DataPath + "/pland.db")
	}
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Language oracle.
	llm, err := oracle.NewOracle(cfg.Oracle)
	if err != nil {
		log.Fatalf("Failed to initialize oracle: %v", err)
	}
	log.Printf("Using oracle model %s", llm.GetModel())

	// Intent gate, optionally with a custom vocabulary file.
	gate := intent.NewGate()
	if cfg.Intent.VocabularyPath != "" {
		gate, err = intent.NewGateFromFile(cfg.Intent.VocabularyPath)
		if err != nil {
			log.Fatalf("Failed to load intent vocabulary: %v", err)
		}
	}

	// Messaging gateway.
	messenger := gateway.NewClient(gateway.ClientConfig{
		BotToken:          cfg.Telegram.BotToken,
		APIURL:            cfg.Telegram.APIURL,
		MessagesPerSecond: cfg.Telegram.MessagesPerSecond,
	})

	// Web search is optional; without a key, enrichment and research
	// are disabled and everything else keeps working.
	var searcher websearch.Searcher
	if client, err := websearch.NewClient(websearch.ClientConfig{
		APIKey:  cfg.Search.APIKey,
		BaseURL: cfg.Search.BaseURL,
		Timeout: cfg.Search.Timeout,
	}); err == nil {
		searcher = client
	} else if !errors.Is(err, websearch.ErrNoAPIKey) {
		log.Fatalf("Failed to initialize search client: %v", err)
	}

	// Scheduling pipeline.
	memory, err := engine.NewChatMemory(cfg.Memory.MaxRooms)
	if err != nil {
		log.Fatalf("Failed to initialize chat memory: %v", err)
	}
	extractor := engine.NewExtractor(llm, loc)
	classifier := engine.NewUpdateClassifier(gate, llm, loc)
	session := engine.NewSession(gate, extractor, classifier, store, memory)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background enrichment pool.
	pool := enrich.NewPool(enrich.Config{
		Workers:   cfg.Enrich.Workers,
		QueueSize: cfg.Enrich.QueueSize,
		Render:    bot.EnrichedMessage,
	}, store, searcher, messenger)

	// Topic research agent.
	var researcher bot.Researcher
	if searcher != nil {
		researcher = research.NewAgent(llm, searcher, store, loc)
	}

	// Nightly briefing.
	var briefer *briefing.Scheduler
	if cfg.Briefing.Enabled {
		briefer = briefing.NewScheduler(briefing.Config{
			Hour:     cfg.Briefing.Hour,
			Location: loc,
		}, store, messenger)
		go briefer.Start(ctx)
	}

	var botBriefer bot.Briefer
	if briefer != nil {
		botBriefer = briefer
	}
	router := bot.NewRouter(session, store, messenger, botBriefer, researcher, pool, loc)

	addr, err := server.Start(ctx, cfg, router)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("pland webhook server running at http://%s", addr)

	// Wait for interrupt signal.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	pool.Stop()
	cancel()
	time.Sleep(1 * time.Second) // Give time for in-flight messages to finish.
}
