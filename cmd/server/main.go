package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/runwayscope/runwayscope/internal/ai"
	"github.com/runwayscope/runwayscope/internal/ai/gemini"
	"github.com/runwayscope/runwayscope/internal/api"
	"github.com/runwayscope/runwayscope/internal/config"
	"github.com/runwayscope/runwayscope/internal/reporting"
	"github.com/runwayscope/runwayscope/internal/runway"
	"github.com/runwayscope/runwayscope/internal/storage/sqlite"
	"github.com/runwayscope/runwayscope/internal/tracking"
	"github.com/runwayscope/runwayscope/internal/websocket"
	"github.com/runwayscope/runwayscope/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Runwayscope server",
		logger.String("version", Version),
		logger.String("airport", cfg.Station.AirportCode),
	)

	// One database file per day
	today := time.Now().Format("2006-01-02")
	dbFilename := fmt.Sprintf("runwayscope-%s.db", today)
	dbPath := filepath.Join(cfg.Storage.SQLiteBasePath, dbFilename)

	if err := os.MkdirAll(cfg.Storage.SQLiteBasePath, 0755); err != nil {
		log.Error("Failed to create database directory", logger.Error(err), logger.String("path", cfg.Storage.SQLiteBasePath))
		os.Exit(1)
	}

	storage, err := sqlite.NewPingStorage(dbPath, cfg.Storage.MaxPingsInAPI, log)
	if err != nil {
		log.Error("Failed to create SQLite storage", logger.Error(err))
		os.Exit(1)
	}
	defer storage.Close()
	log.Info("Using SQLite storage", logger.String("path", dbPath))

	// Runway zone geometry and predicate
	ring, err := cfg.RunwayZone.Ring(cfg.Station)
	if err != nil {
		log.Error("Failed to build runway zone", logger.Error(err))
		os.Exit(1)
	}
	pred, err := runway.NewZonePredicate(ring, cfg.RunwayZone.AltitudeCeilingFt)
	if err != nil {
		log.Error("Invalid runway zone geometry", logger.Error(err))
		os.Exit(1)
	}

	engine := runway.NewEngine(
		pred,
		storage,
		runway.CandidateFilter{
			MinGroundSpeedKts:   cfg.Classification.MinGroundSpeedKts,
			MaxAltitudeFt:       cfg.Classification.PrefilterMaxAltFt,
			RunwayAzimuthDeg:    cfg.RunwayZone.AzimuthDeg,
			HeadingToleranceDeg: cfg.Classification.HeadingToleranceDeg,
		},
		cfg.Classification.Workers,
		log,
	)

	// Create WebSocket server
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	// Feed ingestion
	feedClient := tracking.NewClient(
		cfg.Feed.URL,
		cfg.Feed.APIKey,
		cfg.Feed.APIKeyHeader,
		cfg.Station.Latitude,
		cfg.Station.Longitude,
		float64(cfg.Feed.BoundsRadiusM),
		time.Duration(cfg.Feed.RequestTimeoutSecs)*time.Second,
		log,
	)
	trackingService, err := tracking.NewService(
		feedClient,
		storage,
		wsServer,
		time.Duration(cfg.Feed.FetchIntervalSecs)*time.Second,
		log,
	)
	if err != nil {
		log.Error("Failed to create tracking service", logger.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := trackingService.Start(ctx); err != nil {
		log.Error("Failed to start tracking service", logger.Error(err))
		os.Exit(1)
	}

	reportingService, err := reporting.NewService(
		storage,
		cfg.RunwayZone.AzimuthDeg,
		cfg.Station.Latitude,
		cfg.Station.Longitude,
		float64(cfg.Station.ElevationFeet),
		cfg.Reporting.AirlinesDBPath,
		cfg.Reporting.AirportsDBPath,
		cfg.Reporting.AircraftDBPath,
		log,
	)
	if err != nil {
		log.Error("Failed to create reporting service", logger.Error(err))
		os.Exit(1)
	}

	// AI summarizer (if enabled)
	var summarizer *ai.Summarizer
	if cfg.AI.Enabled {
		geminiClient, err := gemini.NewClient(ctx, cfg.AI.APIKey, log)
		if err != nil {
			log.Error("Failed to create Gemini client, continuing without AI summary", logger.Error(err))
		} else {
			summarizer = ai.NewSummarizer(geminiClient, ai.ChatConfig{
				Model:       cfg.AI.Model,
				Temperature: cfg.AI.Temperature,
				MaxTokens:   cfg.AI.MaxTokens,
			}, log)
			log.Info("AI summary enabled", logger.String("model", cfg.AI.Model))
		}
	} else {
		log.Info("AI summary disabled in configuration")
	}

	handler := api.NewHandler(storage, trackingService, engine, reportingService, summarizer, cfg, log, wsServer)
	router := api.NewRouter(handler, cfg, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error on startup", logger.String("addr", server.Addr), logger.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	log.Info("Stopping tracking service...")
	trackingService.Stop()
	log.Info("Tracking service stopped.")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	} else {
		log.Info("HTTP server shutdown complete")
	}

	log.Info("Server fully stopped")
}
