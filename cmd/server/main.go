package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/mkopo/lending-engine/internal/config"
	"github.com/mkopo/lending-engine/internal/handler"
	"github.com/mkopo/lending-engine/internal/repository"
	"github.com/mkopo/lending-engine/internal/service"
	"github.com/mkopo/lending-engine/pkg/response"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	txManager := repository.NewTxManager(db)
	loanRepo := repository.NewLoanRepository(db)
	repaymentRepo := repository.NewRepaymentRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)

	// Initialize service
	lendingService := service.NewLendingService(
		txManager, loanRepo, repaymentRepo, ledgerRepo, directoryRepo,
		service.NewRedisLocker(redisClient), cfg,
	)
	lendingHandler := handler.NewLendingHandler(lendingService)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())

	// Setup routes
	router := setupRoutes(lendingHandler, healthHandler, cfg)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(lendingHandler *handler.LendingHandler, healthHandler *handler.HealthHandler, cfg *config.Config) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)
	router.Use(response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// Payment rail webhook: no bearer auth, the rail signs nothing useful
	router.HandleFunc("/api/v1/webhooks/mpesa", lendingHandler.MpesaWebhook).Methods("POST")

	// Authenticated API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(handler.Authenticate(cfg.Auth.JWTSecret))

	api.HandleFunc("/loans", lendingHandler.CreateApplication).Methods("POST")
	api.HandleFunc("/loans/{loanId}", lendingHandler.GetLoan).Methods("GET")
	api.HandleFunc("/loans/{loanId}/repayments", lendingHandler.PostRepayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/repayments", lendingHandler.ListRepayments).Methods("GET")
	api.HandleFunc("/repayments/{repaymentId}", lendingHandler.VoidRepayment).Methods("DELETE")
	api.HandleFunc("/loans/{loanId}/reconcile", lendingHandler.ReconcileLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/rollover", lendingHandler.RollOverLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/rollovers", lendingHandler.ListRollovers).Methods("GET")
	api.HandleFunc("/scans/defaults", lendingHandler.RunDefaultScan).Methods("POST")
	api.HandleFunc("/scans/missed-payments", lendingHandler.RunMissedPaymentScan).Methods("POST")

	// Admin-only origination transitions
	admin := api.NewRoute().Subrouter()
	admin.Use(handler.RequireRole("admin"))
	admin.HandleFunc("/loans/{loanId}/approve", lendingHandler.ApproveLoan).Methods("POST")
	admin.HandleFunc("/loans/{loanId}/reject", lendingHandler.RejectLoan).Methods("POST")
	admin.HandleFunc("/loans/{loanId}/disburse", lendingHandler.DisburseLoan).Methods("POST")

	return router
}
