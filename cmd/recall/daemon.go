package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/recall/internal/api"
	"github.com/fentz26/recall/internal/capture"
	"github.com/fentz26/recall/internal/config"
	"github.com/fentz26/recall/internal/detector"
	"github.com/fentz26/recall/internal/ingest"
	"github.com/fentz26/recall/internal/source"
	"github.com/fentz26/recall/internal/store"
)

var (
	configPath   string
	listenAddr   string
	dbPath       string
	sourceDBPath string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the Recall daemon (recalld)",
	Long:  `Starts the Recall daemon which ingests window events from the capture database and serves the HTTP API.`,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default ~/.recall/config.yaml)")
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides config)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
	daemonCmd.Flags().StringVar(&sourceDBPath, "source", "", "Path to the capture database (overrides config)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.Println("Starting Recall daemon...")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.LoadFromHome()
	}
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if sourceDBPath != "" {
		cfg.SourceDBPath = sourceDBPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Initialize store
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}

	// Locate the capture database if not configured
	if cfg.SourceDBPath == "" {
		det := capture.NewDetector()
		det.Scan()
		if path, ok := det.DefaultDatabasePath(); ok {
			cfg.SourceDBPath = path
			log.Printf("Auto-detected capture database: %s", path)
		} else {
			log.Println("Warning: no capture database found; ingest will only see pushed events")
		}
	}

	var reader *source.Reader
	if cfg.SourceDBPath != "" {
		reader, err = source.Open(cfg.SourceDBPath)
		if err != nil {
			log.Printf("Warning: failed to open capture database: %v", err)
			reader = nil
		}
	}

	// Wire detector -> ingest pipeline -> API
	d := detector.New(cfg.Detector)
	pollInterval := time.Duration(cfg.PollIntervalSec) * time.Second
	pipeline := ingest.New(s, reader, d, cfg.SourceDBPath, pollInterval, cfg.BatchLimit)

	service := api.NewService(s, pipeline)
	server := api.NewServer(service, cfg.Listen)

	pipeline.Start()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	log.Printf("API listening on %s", cfg.Listen)

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server error: %v", err)
			pipeline.Stop()
			s.Close()
			return err
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Println("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Stopping ingest pipeline...")
	pipeline.Stop()

	if reader != nil {
		reader.Close()
	}

	log.Println("Closing database connection...")
	if err := s.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}
