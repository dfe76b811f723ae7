package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "pimonitor/docs"
	"pimonitor/internal/bus"
	"pimonitor/internal/client"
	"pimonitor/internal/config"
	"pimonitor/internal/handlers"
	"pimonitor/internal/logger"
	"pimonitor/internal/mqtt"
	"pimonitor/internal/repository"
	"pimonitor/internal/repository/db"
	"pimonitor/internal/server"
	"pimonitor/internal/service"
)

const (
	backendTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

// @title           Pi Monitor API
// @version         1.0
// @description     Dashboard daemon for a Raspberry Pi DHT22 sensor and camera backend.
// @BasePath        /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// load configs/config.yml and PIMONITOR_* overrides
	cfg, err := config.Load("configs", ".")
	if err != nil {
		logger.Get(logger.InfoLevel, logger.FormatConsole).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.LogLevel, cfg.LogFormat)

	// open DB (optional)
	sqlDB, err := openDB(cfg.DB.Path, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	backend := client.New(cfg.Backend.BaseURL, &http.Client{Timeout: backendTimeout})
	media, err := client.NewMediaProxy(cfg.Backend.BaseURL)
	if err != nil {
		log.Fatalw("invalid backend url", "err", err)
	}

	events := bus.New(log.Named("bus"))
	dash := service.NewDashboard(backend, repos, events, service.DashboardConfig{
		ReadingInterval:    cfg.Poll.ReadingInterval,
		AccessLogInterval:  cfg.Poll.AccessLogInterval,
		AccessLogLimit:     cfg.Backend.AccessLogLimit,
		RespectManualPause: cfg.Stream.RespectManualPause,
		SuspendWhenIdle:    cfg.Poll.SuspendWhenIdle,
	}, log)

	services := service.NewService(dash, repos, service.AuthSettings{
		SigningKey: cfg.Auth.SigningKey,
		TokenTTL:   cfg.Auth.TokenTTL,
	})
	apiHandler := handlers.NewHandler(services, log.Named("http"),
		handlers.WithMediaProxy(media),
		handlers.WithAuth(cfg.Auth.Enabled),
	)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// mount the dashboard cells
	dash.Start(ctx)

	publisher := newPublisher(cfg.MQTT, dash, log)
	if err := publisher.Start(ctx); err != nil {
		log.Errorw("mqtt_start_failed", "err", err)
	}

	// start HTTP server
	srv := server.New(cfg.Port, apiHandler.InitRoutes())
	// websocket viewers are hijacked connections; closing the bus ends their loops
	srv.OnShutdown(events.Close)
	runHTTPServer(srv, log)
	log.Infow("pimonitor started", "addr", srv.Addr(), "backend", cfg.Backend.BaseURL, "persistence", sqlDB != nil)

	// graceful shutdown
	waitForShutdown(cancel, srv, dash, publisher, sqlDB, log)
}

// openDB initializes the SQLite database; an empty path disables persistence.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set; local persistence disabled")
		return nil, nil
	}
	return db.InitDB(path)
}

func newPublisher(cfg config.MQTTConfig, dash *service.Dashboard, log *logger.Logger) mqtt.Publisher {
	if !cfg.Enabled {
		return mqtt.NewStubPublisher(log)
	}
	return mqtt.NewBrokerPublisher(cfg, dash, log)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, log *logger.Logger) {
	go func() {
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and stops components in
// reverse dependency order: HTTP, dashboard, MQTT, database.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, dash *service.Dashboard, publisher mqtt.Publisher, sqlDB *sql.DB, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// allow in-flight requests to complete
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	// stop background goroutines
	dash.Stop()
	cancel()

	if err := publisher.Stop(ctx); err != nil {
		log.Errorw("mqtt_stop_failed", "err", err)
	}

	if sqlDB != nil {
		if err := sqlDB.Close(); err != nil {
			log.Errorw("failed to close sqlite", "err", err)
		}
	}
	_ = log.Sync()
}
