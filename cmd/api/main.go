package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/app"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/config"
)

func main() {
	envFile := flag.String("env-file", "", "env file loaded before configuration; defaults to ./.env when present")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("failed to load env file %s: %v", *envFile, err)
		}
	} else {
		// A missing default .env is fine; the environment wins either way.
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init auth service: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Printf("auth service stopped: %v", err)
		os.Exit(1)
	}
}
