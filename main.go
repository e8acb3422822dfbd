package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realty-scanner/assessment"
	"realty-scanner/config"
	"realty-scanner/models"
	"realty-scanner/notify"
	"realty-scanner/pipeline"
	"realty-scanner/scraper/realtor"
	"realty-scanner/services"
	"realty-scanner/storage"
	"realty-scanner/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()
	logger.SetLevel(utils.ParseLevel(cfg.LogLevel))

	if err := run(cfg, logger); err != nil {
		logger.Error("Scan aborted: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *utils.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	searches, err := config.LoadSearches(cfg.SearchesFile)
	if err != nil {
		return err
	}

	logger.Info("=== Realty scan starting ===")
	logger.Info("Config: searches: %d | max pages: %d | threshold: %d | data: %s",
		len(searches), cfg.MaxPages, cfg.AlertThreshold, cfg.DataDir)

	files, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		return err
	}

	var snapshots storage.SnapshotStore = files
	if cfg.SnapshotBackend == "postgres" {
		pg, err := storage.NewPostgresStore(ctx, cfg.DSN())
		if err != nil {
			logger.Error("Make sure PostgreSQL is running: docker compose up -d")
			return err
		}
		snapshots = pg
	}
	defer snapshots.Close()

	browser, err := realtor.NewBrowser(realtor.BrowserOptions{
		CDPURL:    cfg.CDPURL,
		ChromeBin: cfg.ChromeBin,
		Headless:  cfg.Headless,
	}, logger)
	if err != nil {
		return err
	}
	defer browser.Close()

	collector := realtor.NewCollector(browser, services.NewCleaner(logger), realtor.CollectorOptions{
		MaxPages:      cfg.MaxPages,
		PageTimeout:   cfg.PageTimeout,
		InitialSettle: cfg.InitialSettle,
		BatchTimeout:  cfg.BatchTimeout,
		BatchSettle:   cfg.BatchSettle,
		MaxAttempts:   cfg.MaxAttempts,
	}, logger)

	assessments := assessment.NewClient(cfg.AssessmentURL, cfg.AssessmentPageSize, nil, &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
	}, logger)

	deps := pipeline.Deps{
		Collector:   collector,
		Assessments: assessments,
		Snapshots:   snapshots,
		Artifacts:   files,
		Reporter:    services.NewReportGenerator(logger, cfg.TopDiscountRows),
		Scoring: services.ScoringConfig{
			LargeLotSqft:    cfg.LargeLotSqft,
			LowPrice:        cfg.LowPrice,
			PricePerBedLow:  cfg.PricePerBedLow,
			PricePerBedHigh: cfg.PricePerBedHigh,
			CondoPrice:      cfg.CondoPrice,
		},
		Threshold:   cfg.AlertThreshold,
		SearchDelay: cfg.SearchDelay,
		Logger:      logger,
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Warn("Telegram disabled: %v", err)
		} else {
			deps.Notifier = tg
		}
	}

	report, err := pipeline.New(deps).Run(ctx, searches)
	if err != nil {
		return err
	}

	deps.Reporter.PrintSummary(report)
	fmt.Printf("  Done. Report → %s/latest-report.md | Snapshot → %s\n\n", files.Dir(), snapshotTarget(cfg))
	logAlerts(logger, report.Alerts)
	return nil
}

func snapshotTarget(cfg *config.Config) string {
	if cfg.SnapshotBackend == "postgres" {
		return "PostgreSQL (snapshot_listings table)"
	}
	return cfg.DataDir + "/latest.json"
}

func logAlerts(logger *utils.Logger, alerts []models.Alert) {
	if len(alerts) == 0 {
		return
	}
	logger.Info("%d alert(s) written to alerts.json", len(alerts))
}
