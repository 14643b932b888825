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

	"github.com/fluentia/fluentia-server/internal/api"
	"github.com/fluentia/fluentia-server/internal/config"
	"github.com/fluentia/fluentia-server/internal/core"
	"github.com/fluentia/fluentia-server/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Command line flag to force a content reseed
	seedFlag := flag.Bool("seed", false, "Wipe the database and reload the static course content, then exit")
	flag.Parse()

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	if *seedFlag {
		lessons, err := dbStore.Seed()
		if err != nil {
			log.Fatalf("Reseed failed: %v", err)
		}
		log.Printf("Reseed complete. Loaded %d lessons. Exiting.", lessons)
		os.Exit(0)
	}

	// First startup loads the static course content automatically.
	if _, err := dbStore.SeedIfEmpty(); err != nil {
		log.Fatalf("Failed to seed course content: %v", err)
	}

	// Initialize inference client and services
	llmClient := core.NewLLMClient(config.AppConfig.OllamaURL)
	chatService := core.NewChatService(dbStore, llmClient, config.AppConfig.TutorModel, config.AppConfig.GraderModel)
	dashboardService := core.NewDashboardService(dbStore)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(dbStore, chatService, dashboardService)
	router := api.NewRouter(apiHandler, config.AppConfig.ClientOrigin)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // Two sequential inference calls, each up to two minutes
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
