package main

import (
	"context"
	"flag"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"accidents/internal/api"
	"accidents/internal/config"
	"accidents/internal/engine"
	"accidents/internal/logging"
	"accidents/internal/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logging.New("info", "json")
		bootLog.Fatal().Err(err).Msg("configuration")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	m := metrics.New()
	store := engine.NewStore(engine.Options{
		SampleLimit: cfg.Query.SampleLimit,
		MaxPageRows: cfg.Query.MaxPageRows,
	})

	// The API goes live immediately; queries answer 503 until the load
	// below publishes the dataset.
	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = api.JSONSerializer{}
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	h := api.NewHandler(store, m, cfg.Dataset.StateColumn, cfg.Dataset.TimeColumn)
	h.RegisterRoutes(e)

	if cfg.Dataset.FailFast {
		// Operator opted into abort-on-missing-dataset; load before
		// accepting traffic so a broken deploy dies loudly.
		if err := loadAndPublish(cfg, store, m, log); err != nil {
			log.Fatal().Err(err).Msg("dataset load (fail_fast)")
		}
	} else {
		go func() {
			if err := loadAndPublish(cfg, store, m, log); err != nil {
				log.Warn().Err(err).Msg("dataset load failed, serving not-ready until restart")
			}
		}()
	}

	log.Info().Str("addr", cfg.Server.Addr).Msg("server ready")
	if err := e.Start(cfg.Server.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// loadAndPublish runs the single load attempt, derives the heatmap cache
// and publishes both. There is no retry loop; a failed load leaves the
// store empty for the rest of the process lifetime.
func loadAndPublish(cfg *config.Config, store *engine.Store, m *metrics.Metrics, log zerolog.Logger) error {
	t0 := time.Now()

	// Cheap footer/header read first: surfaces a bad path or mangled file
	// before committing to the multi-gigabyte load.
	names, err := engine.ReadSchema(cfg.Dataset.Path)
	if err != nil {
		return err
	}
	log.Info().Int("columns", len(names)).Str("path", cfg.Dataset.Path).Msg("schema read")

	tbl, err := engine.Load(context.Background(), cfg.Dataset.Path, log)
	if err != nil {
		return err
	}

	heatmap := engine.BuildMonthlyStateCounts(tbl, cfg.Dataset.TimeColumn, cfg.Dataset.StateColumn, log)
	store.Publish(tbl, heatmap)

	m.DatasetReady.Set(1)
	m.DatasetRows.Set(float64(tbl.NumRows()))
	m.LoadSeconds.Set(time.Since(t0).Seconds())
	log.Info().Dur("elapsed", time.Since(t0)).Msg("dataset published, API fully ready")
	return nil
}
