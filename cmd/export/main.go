// Command export renders the change journal into an xlsx report from the
// command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"kovorka/internal/config"
	"kovorka/internal/export"
	"kovorka/internal/journal"
	"kovorka/internal/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath(), "path to config.yaml")
	sinceRaw := flag.String("since", "", "include changes since this date (YYYY-MM-DD, default 30 days back)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	logger := baseLogger.With().Str("component", "export-main").Logger()

	since := time.Now().AddDate(0, 0, -30)
	if *sinceRaw != "" {
		parsed, err := time.Parse("2006-01-02", *sinceRaw)
		if err != nil {
			return fmt.Errorf("invalid -since value %q: expected YYYY-MM-DD", *sinceRaw)
		}
		since = parsed
	}

	db, err := journal.NewDB(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer db.Close()

	exporter := export.NewExporter(db, cfg.Exports.Path, logger)
	path, err := exporter.ExportChangeLog(context.Background(), since)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	fmt.Println(path)
	return nil
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "configs/config.yaml"
}
