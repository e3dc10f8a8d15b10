package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/hoyun5295-ctrl/targetup/internal/ai"
	"github.com/hoyun5295-ctrl/targetup/internal/config"
	"github.com/hoyun5295-ctrl/targetup/internal/engine"
	"github.com/hoyun5295-ctrl/targetup/internal/handler"
	"github.com/hoyun5295-ctrl/targetup/internal/middleware"
	"github.com/hoyun5295-ctrl/targetup/internal/parser"
	"github.com/hoyun5295-ctrl/targetup/internal/population"
	"github.com/hoyun5295-ctrl/targetup/internal/queue"
	"github.com/hoyun5295-ctrl/targetup/internal/recommend"
	"github.com/hoyun5295-ctrl/targetup/internal/repository"
	"github.com/hoyun5295-ctrl/targetup/internal/scheduler"
	"github.com/hoyun5295-ctrl/targetup/internal/service"
)

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Verify database connection
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✅ Connected to database")

	// Repositories and the in-memory population cache
	campaignRepo := repository.NewCampaignRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)

	pop := population.NewStore(customerRepo, purchaseRepo)
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	if err := pop.Load(loadCtx); err != nil {
		// The preview path loads lazily, so startup survives an empty DB
		log.Printf("⚠️  Population not loaded yet: %v", err)
	} else {
		log.Printf("✅ Loaded %d customers", pop.Size())
	}
	cancelLoad()

	// RabbitMQ is optional infrastructure: without a broker the dispatch
	// intent is only logged
	var publisher scheduler.DispatchPublisher
	var queueCheck service.QueueChecker
	if conn, err := queue.NewConnection(cfg.GetRabbitMQURL()); err != nil {
		log.Printf("⚠️  RabbitMQ unavailable, dispatch intents will be log-only: %v", err)
	} else {
		queueCheck = conn
		defer conn.Close()
		pub, err := queue.NewPublisher(conn, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.Printf("⚠️  Failed to create publisher: %v", err)
		} else {
			publisher = pub
			log.Println("✅ Connected to RabbitMQ")
		}
	}

	// Optional AI collaborators; the rule engine serves when absent
	var aiParser ai.PromptParser
	var aiGenerator ai.VariantGenerator
	var similar ai.SimilaritySearcher
	if cfg.AI.APIKey != "" {
		client := ai.NewClient(cfg.AI.APIKey, cfg.AI.Model)
		aiParser = ai.NewLLMParser(client)
		aiGenerator = ai.NewLLMGenerator(client)
		log.Println("✅ AI collaborators enabled")
	}
	similar = ai.NewKeywordSearcher(campaignRepo)

	// Services
	targetingSvc := service.NewTargetingService(
		pop, parser.New(), engine.New(pop), recommend.New(),
		aiParser, aiGenerator, similar,
	)
	campaignSvc := service.NewCampaignService(campaignRepo, cfg.Targets.Dir, publisher)
	healthSvc := service.NewHealthChecker(db, queueCheck, pop)

	// Handlers
	previewHandler := handler.NewPreviewHandler(targetingSvc)
	campaignHandler := handler.NewCampaignHandler(campaignSvc, targetingSvc)
	healthHandler := handler.NewHealthHandler(healthSvc)
	sweepHandler := handler.NewSweepHandler(scheduler.New(campaignRepo, publisher))

	// Router
	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.RequestLog)

	router.HandleFunc("/health", healthHandler.HandleHealth).Methods("GET")
	router.HandleFunc("/status", previewHandler.Status).Methods("GET")
	router.HandleFunc("/reload", previewHandler.Reload).Methods("POST")
	router.HandleFunc("/preview", previewHandler.Preview).Methods("POST")
	router.HandleFunc("/sweep", sweepHandler.Sweep).Methods("POST")

	// /campaigns/stats before /campaigns/{id} so "stats" never parses as an ID
	router.HandleFunc("/campaigns/stats", campaignHandler.Stats).Methods("GET")
	router.HandleFunc("/campaigns", campaignHandler.Create).Methods("POST")
	router.HandleFunc("/campaigns", campaignHandler.List).Methods("GET")
	router.HandleFunc("/campaigns/{id}", campaignHandler.GetByID).Methods("GET")
	router.HandleFunc("/campaigns/{id}", campaignHandler.Delete).Methods("DELETE")
	router.HandleFunc("/campaigns/{id}/cancel", campaignHandler.Cancel).Methods("POST")
	router.HandleFunc("/campaigns/{id}/send", campaignHandler.Send).Methods("POST")
	router.HandleFunc("/campaigns/{id}/targets", campaignHandler.Targets).Methods("GET")

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("🚀 API Server starting on port :%s", cfg.Server.Port)
		log.Printf("🌍 Environment: %s", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("🛑 Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("✅ API Server stopped")
}
