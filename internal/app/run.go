package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/config"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/db"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/httpapi"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/migrate"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/dashboard"
	dashboardcontroller "github.com/602gho/mtr-isl-hfc-webpage/internal/modules/dashboard/controller"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/trains"
	trainservice "github.com/602gho/mtr-isl-hfc-webpage/internal/modules/trains/service"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather"
	weatherrepository "github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/repository"
	weatherservice "github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/service"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/mqtt"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/poller"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/runs"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/tracing"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/upstream"
	"github.com/602gho/mtr-isl-hfc-webpage/internal/views"
)

const boardTitle = "港島綫 炮台山站"

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, version string) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"station", cfg.StationKey(),
		"trainRefresh", cfg.TrainRefreshInterval,
		"weatherRefresh", cfg.WeatherRefreshInterval,
		"mqttEnabled", cfg.MQTTEnabled,
		"zipkin", cfg.ZipkinURL != "",
	)

	shutdownTracing, err := tracing.Setup(cfg.ZipkinURL, "station-board", version)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("tracing shutdown", "error", err)
		}
	}()

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn); err != nil {
		return err
	}

	runRepository := runs.NewRepository(dbConn)
	weatherRepository := weatherrepository.NewRepository(dbConn)
	client := upstream.New(cfg.FetchTimeout, cfg.UpstreamRPS, cfg.UpstreamBurst)

	// A nil publisher disables fan-out; keep it an untyped nil interface.
	var publisher trainservice.Publisher
	if cfg.MQTTEnabled {
		mqttPublisher := mqtt.NewPublisher(cfg, logger)
		// Don't block startup on a missing broker; paho keeps retrying.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err := mqttPublisher.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing, publishes are skipped until it connects)", "error", err)
		}
		defer mqttPublisher.Disconnect()
		publisher = mqttPublisher
	}

	trainService := trainservice.NewService(cfg, client, runRepository, publisher, logger)
	weatherService := weatherservice.NewService(cfg, client, weatherRepository, runRepository, publisher, logger)

	trainPoller := poller.New(trainservice.Source, cfg.TrainRefreshInterval, trainService.Refresh)
	weatherPoller := poller.New(weatherservice.SourceCurrent, cfg.WeatherRefreshInterval, weatherService.Refresh)

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	mux := httpapi.NewMux(dbConn, cfg.StaticDir, runRepository,
		trainservice.Source, weatherservice.SourceCurrent, weatherservice.SourceForecast)
	trains.RegisterFeature(mux, trainService, trainPoller)
	weather.RegisterFeature(mux, weatherService, weatherPoller, weatherRepository)
	dashboard.RegisterFeature(mux, trainService, weatherService, runRepository, dashboardcontroller.Options{
		Title:           boardTitle,
		TrainInterval:   cfg.TrainRefreshInterval,
		WeatherInterval: cfg.WeatherRefreshInterval,
		Location:        cfg.Location,
	})

	pollCtx, stopPolling := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for _, p := range []*poller.Poller{trainPoller, weatherPoller} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(pollCtx)
		}()
	}
	defer func() {
		stopPolling()
		wg.Wait()
	}()

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
