package main

import (
	"context"
	"database/sql"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"asthma_shield/internal/config"
	"asthma_shield/internal/device"
	"asthma_shield/internal/engine"
	"asthma_shield/internal/handlers"
	"asthma_shield/internal/logger"
	"asthma_shield/internal/metrics"
	"asthma_shield/internal/publisher"
	"asthma_shield/internal/repository"
	"asthma_shield/internal/repository/db"
	"asthma_shield/internal/server"
	"asthma_shield/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the control loop and the HTTP API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	conn, err := openDB(cfg, log)
	if err != nil {
		return fmt.Errorf("init sqlite: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	repos := repository.NewRepository(conn)
	m := metrics.New()

	pub, closePub := newPublisher(cfg.Kafka, log)
	defer closePub()
	rec := service.NewEventRecorder(repos.Events, pub, log.Named("events"))

	hw := openDevices(ctx, cfg, log)
	defer hw.close()

	coord := service.NewCoordinator(hw.purifier, hw.thermostat, hw.relay, rec, m, log.Named("coordinator"))
	circulation := service.NewCirculationKick(service.CirculationConfig{
		Enabled:  cfg.Circulation.Enabled,
		Interval: cfg.Circulation.Interval,
		Dwell:    cfg.Circulation.Dwell,
		PM25Max:  cfg.Circulation.PM25Max,
	}, coord, rec, m, log.Named("circulation"))
	dust := service.NewDustKicker(service.DustKickerConfig{
		StirDelay:   cfg.DustKicker.StirDelay,
		ScrubPeriod: cfg.DustKicker.ScrubPeriod,
	}, coord, rec, m, log.Named("dust_kicker"))

	shield := service.NewShieldService(service.ShieldConfig{
		Thresholds:   thresholds(cfg.Thresholds),
		SensorSource: cfg.Loop.SensorSource,
	}, service.ShieldDeps{
		Store:         service.NewStateStore(),
		Sensors:       device.NewSensors(hw.climate, hw.air, log.Named("sensors")),
		Coordinator:   coord,
		Circulation:   circulation,
		DustKicker:    dust,
		Recorder:      rec,
		Metrics:       m,
		Collaborators: hw.reporters,
	}, log.Named("shield"))

	auth, err := service.NewAuthService(repos.Operators, cfg.Auth.SigningKey, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	services := service.NewService(repos, shield, coord, auth)
	api := handlers.NewHandler(services, m, log.Named("http"))

	// control loop
	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		services.ControlLoop.Run(loopCtx, cfg.Loop.Interval)
	}()

	// HTTP server
	srv := server.New(cfg.HTTP)
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Run(cfg.Port, api.InitRoutes())
	}()
	log.Infow("server_started", "port", cfg.Port, "interval", cfg.Loop.Interval, "sensor_source", cfg.Loop.SensorSource)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-srvErr:
		log.Errorw("error starting server", "err", runErr)
	}

	log.Infow("shutting down server...")
	cancelLoop()
	<-loopDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
	// sequences revert their actuators before devices are closed
	if err := services.ControlLoop.Shutdown(shutdownCtx); err != nil {
		log.Errorw("sequences did not stop in time", "err", err)
	}
	return runErr
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg *config.Config, log *logger.Logger) (*sql.DB, error) {
	path := cfg.DB.Path
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "shield.db")
		path = "shield.db"
	}
	return db.InitDB(path)
}

// newPublisher returns the Kafka event publisher when brokers are configured.
// The returned close func is always safe to call.
func newPublisher(cfg config.KafkaConfig, log *logger.Logger) (service.Publisher, func()) {
	if len(cfg.Brokers) == 0 {
		return nil, func() {}
	}
	k, err := publisher.NewKafka(cfg.Brokers, cfg.Topic)
	if err != nil {
		log.Warnw("kafka publisher disabled", "err", err)
		return nil, func() {}
	}
	log.Infow("kafka publisher enabled", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return k, func() {
		if err := k.Close(); err != nil {
			log.Warnw("failed to close kafka writer", "err", err)
		}
	}
}

func thresholds(c config.ThresholdsConfig) engine.Thresholds {
	return engine.Thresholds{
		PM25High:        c.PM25High,
		PM25Medium:      c.PM25Medium,
		HumidityHigh:    c.HumidityHigh,
		HumidityLow:     c.HumidityLow,
		FreeDryOutdoor:  c.FreeDryOutdoor,
		OvercoolOutdoor: c.OvercoolOutdoor,
	}
}
