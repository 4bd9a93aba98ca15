package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/mkopo/lending-engine/internal/config"
	"github.com/mkopo/lending-engine/internal/repository"
	"github.com/mkopo/lending-engine/internal/service"
)

const jobTimeout = 30 * time.Minute

func main() {
	log.Println("Starting lending scheduler...")

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	lendingService := service.NewLendingService(
		repository.NewTxManager(db),
		repository.NewLoanRepository(db),
		repository.NewRepaymentRepository(db),
		repository.NewLedgerRepository(db),
		repository.NewDirectoryRepository(db),
		service.NewRedisLocker(redisClient),
		cfg,
	)

	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.GetSchedulerLocation()),
	)

	setupCronJobs(c, cfg, lendingService)

	c.Start()
	log.Println("Scheduler started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Println("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, svc *service.LendingService) {
	// Default detection: loans past their expected completion date
	_, err := c.AddFunc(cfg.Scheduler.DefaultScanSpec, func() {
		log.Println("Running default detection scan...")
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		defaulted, err := svc.RunDefaultScan(ctx)
		if err != nil {
			// Scan failures never crash the scheduler; the next
			// tick re-evaluates full state.
			log.Printf("Default detection scan failed: %v", err)
			return
		}
		log.Printf("Default detection scan done: %d loans newly defaulted", len(defaulted))
	})
	if err != nil {
		log.Fatalf("Error scheduling default detection scan: %v", err)
	}

	// Missed-payment detection: loans past their due date
	_, err = c.AddFunc(cfg.Scheduler.MissedScanSpec, func() {
		log.Println("Running missed-payment scan...")
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		processed, err := svc.RunMissedPaymentScan(ctx)
		if err != nil {
			log.Printf("Missed-payment scan failed: %v", err)
			return
		}
		log.Printf("Missed-payment scan done: %d loans accrued arrears", processed)
	})
	if err != nil {
		log.Fatalf("Error scheduling missed-payment scan: %v", err)
	}

	log.Println("Cron jobs scheduled successfully")
}
