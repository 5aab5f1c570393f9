package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/venuehub/mailforge/internal/api"
	"github.com/venuehub/mailforge/internal/config"
	"github.com/venuehub/mailforge/internal/service"
	"github.com/venuehub/mailforge/internal/storage"
)

var version = "0.1.0"

func printHelp() {
	fmt.Printf(`mailforge - venue email template rendering service

USAGE:
    mailforge [OPTIONS]

OPTIONS:
    --help        Show this help information
    --version     Print version information
    --port        HTTP listen port (overrides MAILFORGE_PORT, default 8080)
    --data-dir    Store root directory (overrides MAILFORGE_DIR, default "data")

ENVIRONMENT (also read from a .env file when present):
    MAILFORGE_DIR      root of the file-backed stores
    MAILFORGE_PORT     HTTP listen port
    MAILFORGE_STORAGE  "files" (default) or "sqlite"
    MAILFORGE_DB       sqlite database path (default "mailforge.db")
`)
}

func main() {
	showHelp := flag.Bool("help", false, "Show help information")
	showVersion := flag.Bool("version", false, "Print version information")
	port := flag.Int("port", 0, "HTTP listen port")
	dataDir := flag.String("data-dir", "", "Store root directory")
	flag.Parse()

	if *showHelp {
		printHelp()
		return
	}
	if *showVersion {
		fmt.Printf("mailforge %s\n", version)
		return
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	svc, cleanup, err := buildService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer cleanup()

	server := api.NewServer(svc, cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		log.Fatalf("Server error: %v", err)
	case <-ctx.Done():
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}
}

// buildService wires the configured store adapter into the service. The
// returned cleanup releases adapter resources (the sqlite handle).
func buildService(cfg *config.Config) (*service.Service, func(), error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		store, err := storage.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		svc := service.New(store, store.Venues(), store.Schemas())
		return svc, func() { store.Close() }, nil
	default:
		store, err := storage.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		svc := service.New(store, store.Venues(), store.Schemas())
		return svc, func() {}, nil
	}
}
