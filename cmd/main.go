package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crypt0inf0/openalgo-chart/internal/alerts"
	"github.com/crypt0inf0/openalgo-chart/internal/config"
	"github.com/crypt0inf0/openalgo-chart/internal/engine"
	"github.com/crypt0inf0/openalgo-chart/internal/feed"
	"github.com/crypt0inf0/openalgo-chart/internal/geometry"
	"github.com/crypt0inf0/openalgo-chart/internal/handlers"
	"github.com/crypt0inf0/openalgo-chart/internal/models"
	"github.com/crypt0inf0/openalgo-chart/internal/notify"
	"github.com/crypt0inf0/openalgo-chart/internal/routes"
	"github.com/crypt0inf0/openalgo-chart/internal/server"
	"github.com/crypt0inf0/openalgo-chart/internal/sound"
	"github.com/crypt0inf0/openalgo-chart/internal/storage"
)

func main() {
	// Parse command line flags
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Printf("Failed to load config from %s, using defaults: %v", *configFile, err)
		cfg = config.DefaultConfig()
	}

	// Initialize database
	db, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Notification push hub
	hub := server.NewHub()
	go hub.Run()

	// Engine components
	store := alerts.NewStore(cfg.Chart.Symbol, cfg.Chart.Exchange)
	tools := geometry.NewRegistry()
	soundManager := sound.NewManager()
	player := sound.NewPlayer(soundManager, hub)
	webhooks := notify.NewWebhookService(cfg.Webhook.DefaultURL)
	notifier := notify.New(hub, player, webhooks)

	evaluator := engine.New(store, tools, func(evt models.TriggerEvent) {
		settings := models.DefaultNotificationSettings()
		if alert, ok := store.Get(evt.AlertID); ok {
			settings = alert.Settings()
		}
		notifier.HandleTrigger(evt, settings)
	})

	// Restore persisted alerts
	if records, err := db.LoadAll(); err != nil {
		log.Printf("Failed to load persisted alerts: %v", err)
	} else if n := store.ImportAlerts(records); n > 0 {
		log.Printf("Restored %d persisted alerts", n)
	}

	// Live market data feed
	var priceFeed *feed.BinanceFeed
	if cfg.Feed.IsActive {
		priceFeed = feed.NewBinanceFeed(cfg.Feed.Symbol, evaluator.OnTick)
		priceFeed.Start()
	}

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	alertHandler := handlers.NewAlertHandler(store, evaluator, soundManager, db)
	routes.SetupRoutes(r, alertHandler, hub)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Printf("Starting server on %s", addr)
		log.Printf("Tick endpoint: http://%s/api/v1/ticks", addr)
		log.Printf("Health check: http://%s/health", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal, then persist and release resources.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	if priceFeed != nil {
		priceFeed.Stop()
	}
	if err := db.ReplaceAll(store.ExportAlerts()); err != nil {
		log.Printf("Failed to persist alerts on shutdown: %v", err)
	}
	notifier.Destroy()
	evaluator.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	log.Println("Server stopped")
}
