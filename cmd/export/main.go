// Command export dumps the complaint snapshot into an XLSX workbook for
// offline triage, without going through the HTTP API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/railsewa/grievance-service/internal/bootstrap"
	"github.com/railsewa/grievance-service/internal/config"
	"github.com/railsewa/grievance-service/internal/core/domain"
	"github.com/railsewa/grievance-service/internal/exporting"
	"github.com/railsewa/grievance-service/internal/observability/logging"
)

func main() {
	out := flag.String("out", "complaints.xlsx", "path of the workbook to write")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	// The exporter reads the snapshot directly; no broadcast fan-out needed.
	cfg.NATSEnabled = false
	logger := logging.NewTextLogger("grievance-export", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	all := app.Lifecycle.List(ctx, domain.Identity{Role: domain.RoleAdmin})
	raw, err := exporting.NewXLSXExporter().Export(all)
	if err != nil {
		log.Fatalf("export error: %v", err)
	}
	if err := os.WriteFile(*out, raw, 0o644); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
	logger.Info("export written", "path", *out, "complaints", len(all))
}
