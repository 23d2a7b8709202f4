package main

import (
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/yegors/runboard/internal/backend"
	"github.com/yegors/runboard/internal/config"
	"github.com/yegors/runboard/internal/metrics"
	"github.com/yegors/runboard/internal/planner"
	"github.com/yegors/runboard/internal/schedule"
	"github.com/yegors/runboard/internal/storage/sqlite"
	"github.com/yegors/runboard/pkg/logger"
)

// app holds the wired components shared by every command
type app struct {
	config   *config.Config
	logger   *logger.Logger
	db       *sql.DB
	journal  *sqlite.JournalStorage
	registry *prometheus.Registry
	session  *planner.Session
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	client, err := backend.NewClient(backend.Options{
		BaseURL:  cfg.Backend.BaseURL,
		Airport:  cfg.Backend.Airport,
		Airline:  cfg.Backend.Airline,
		APIToken: cfg.Backend.APIToken,
		Timeout:  cfg.Backend.RequestTimeout(),
	}, log)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.Open(cfg.Storage.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	journal, err := sqlite.NewJournalStorage(db, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.Planner.MetricsNamespace, registry)

	session := planner.NewSession(client, planner.Options{
		Limits: schedule.Limits{
			MaxFlights:      cfg.Planner.MaxFlightsPerRun,
			TightGapMinutes: cfg.Planner.TightGapMinutes,
		},
		Journal: journal,
		Metrics: m,
	}, log)

	return &app{
		config:   cfg,
		logger:   log,
		db:       db,
		journal:  journal,
		registry: registry,
		session:  session,
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Failed to close journal", logger.Error(err))
	}
	_ = a.logger.Sync()
}
