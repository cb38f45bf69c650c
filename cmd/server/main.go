// Package main is the entry point for the Result Analyser API server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shimizu-Technology/result-analyser-api/internal/config"
	"github.com/Shimizu-Technology/result-analyser-api/internal/database"
	"github.com/Shimizu-Technology/result-analyser-api/internal/handlers"
	"github.com/Shimizu-Technology/result-analyser-api/internal/metrics"
	"github.com/Shimizu-Technology/result-analyser-api/internal/middleware"
	"github.com/Shimizu-Technology/result-analyser-api/internal/router"
	"github.com/Shimizu-Technology/result-analyser-api/internal/services/mailer"
	"github.com/Shimizu-Technology/result-analyser-api/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 Result Analyser API %s starting...", Version)

	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	log.Printf("📋 Config loaded: port=%s, gin_mode=%s, max_upload=%dMB", cfg.Port, cfg.GinMode, cfg.MaxUploadMB)
	log.Printf("📐 Departments: %v, fail grades: %v", cfg.Rules.Departments, cfg.Rules.FailGrades)

	os.Setenv("GIN_MODE", cfg.GinMode)

	// Step 2: Connect to Database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✅ Database connected")

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	// Step 3: Create Services
	workbooks, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatalf("❌ Failed to prepare workbook storage: %v", err)
	}
	log.Printf("✅ Workbook storage at %s", cfg.StoragePath)

	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})

	m := metrics.New()

	h := handlers.NewHandler(db, workbooks, m, mail, cfg.Rules)
	h.JWTSecret = cfg.JWTSecret
	h.ResetURLBase = cfg.ResetURLBase
	h.MaxUploadBytes = cfg.MaxUploadBytes()
	h.Version = Version

	// Step 4: Rate limiters, with idle clients swept in the background
	limiters := router.Limiters{
		Public: middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
		User:   middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
	}
	stop := make(chan struct{})
	go limiters.Public.Cleanup(stop, 5*time.Minute, 10*time.Minute)
	go limiters.User.Cleanup(stop, 5*time.Minute, 10*time.Minute)

	// Step 5: Setup HTTP Router
	r := router.Setup(h, cfg.AllowedOrigins, limiters)

	// Step 6: Start the HTTP Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Large result PDFs take a while to parse
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 Health check: http://localhost:%s/api/v1/health", cfg.Port)
		log.Printf("📚 API docs: http://localhost:%s/api/docs", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 7: Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	log.Println("👋 Server stopped. Goodbye!")
}
