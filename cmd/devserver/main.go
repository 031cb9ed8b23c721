package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/connorcarey/bakra/internal/config"
	"github.com/connorcarey/bakra/internal/devserver"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	server := devserver.New(cfg.DevSettleLag)

	log.Printf("Dev server starting on port %s (settle lag %s)", cfg.Port, cfg.DevSettleLag)
	if err := http.ListenAndServe(":"+cfg.Port, server.Routes()); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
