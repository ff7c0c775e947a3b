package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/thereceipt/label-engine/internal/api"
	"github.com/thereceipt/label-engine/internal/config"
	"github.com/thereceipt/label-engine/internal/registry"
)

// Version is set during build via ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath(), "configuration file")
	port := flag.String("port", "", "listen port (overrides config and SERVER_PORT)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *port != "" {
		cfg.Server.Port = *port
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid port: %v", err)
		}
	}

	if err := cfg.Render.Validate(); err != nil {
		log.Printf("Warning: %v", err)
	}
	if cfg.Printer.Target == "" {
		log.Printf("Warning: no default printer configured, /print requests must name one")
	}

	reg, err := registry.New(cfg.Printer.RegistryPath)
	if err != nil {
		log.Fatalf("Failed to open printer registry: %v", err)
	}

	server := api.NewServer(cfg, api.WithRegistry(reg))

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Label Engine %s listening on %s (%d dpi)", Version, cfg.Addr(), cfg.Render.DPI)

	if err := server.Run(ctx, cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	log.Printf("Shutting down")
}

// defaultConfigPath looks for label-engine.yaml next to the executable,
// then in the working directory. A missing file means built-in defaults.
func defaultConfigPath() string {
	const name = "label-engine.yaml"

	if exePath, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(exePath), name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, name)
	}

	return name
}
