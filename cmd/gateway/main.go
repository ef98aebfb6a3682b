// Moodcast gateway
//
// The gateway answers station requests: it listens on the request topic,
// keeps each city's mood in a flat file, looks up current weather from
// OpenWeatherMap and publishes the reply on the city's topic. Served
// replies are also recorded to SQLite and InfluxDB when enabled, and a
// read-only status API exposes moods, history and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/moodcast/internal/api"
	"github.com/nerrad567/moodcast/internal/gateway"
	"github.com/nerrad567/moodcast/internal/history"
	"github.com/nerrad567/moodcast/internal/infrastructure/config"
	"github.com/nerrad567/moodcast/internal/infrastructure/database"
	"github.com/nerrad567/moodcast/internal/infrastructure/influxdb"
	"github.com/nerrad567/moodcast/internal/infrastructure/logging"
	"github.com/nerrad567/moodcast/internal/infrastructure/metrics"
	"github.com/nerrad567/moodcast/internal/infrastructure/mqtt"
	"github.com/nerrad567/moodcast/internal/moodstore"
	"github.com/nerrad567/moodcast/internal/weather"
	"github.com/nerrad567/moodcast/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const serviceName = "gateway"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the gateway together and blocks until ctx is cancelled.
//
// Only configuration errors and the initial broker connection are fatal.
// History, InfluxDB and the status API degrade to "disabled" when they
// cannot start.
func run(ctx context.Context) error {
	log := logging.Default(serviceName)
	log.Info("starting Moodcast gateway",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := config.Path()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, serviceName, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Mood store. A missing file is created with defaults; an unwritable
	// one leaves the gateway running from memory.
	store := moodstore.New(cfg.Gateway.MoodFile)
	store.SetLogger(log.With("component", "moodstore"))
	if loadErr := store.Load(); loadErr != nil {
		log.Warn("mood file unavailable, continuing in memory",
			"path", cfg.Gateway.MoodFile,
			"error", loadErr,
		)
	}
	log.Info("mood store loaded", "path", store.Path(), "cities", store.Len())

	m := metrics.New()

	db, repo := openHistory(ctx, cfg, log)
	if db != nil {
		defer func() {
			log.Info("closing history database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing history database", "error", closeErr)
			}
		}()
	}

	influxClient := connectInflux(ctx, cfg, log)
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log.With("component", "mqtt"))
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", mqttClient.ClientID(),
	)

	if cfg.Weather.APIKey == "" {
		log.Warn("weather.api_key is empty, upstream lookups will be rejected")
	}
	provider := weather.NewOpenWeatherClient(weather.Options{
		BaseURL:   cfg.Weather.BaseURL,
		APIKey:    cfg.Weather.APIKey,
		Units:     cfg.Weather.Units,
		Timeout:   cfg.Gateway.UpstreamTimeout,
		RateLimit: cfg.Weather.RateLimit,
		Burst:     cfg.Weather.Burst,
	})

	// Live event feed for /api/v1/ws.
	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.API.WebSocket, log.With("component", "websocket"))
	}

	opts := gateway.Options{
		MQTT:            mqttClient,
		Store:           store,
		Weather:         provider,
		Metrics:         m,
		Logger:          log.With("component", "gateway"),
		RequestTopic:    cfg.Gateway.RequestTopic,
		QoS:             byte(cfg.MQTT.QoS),
		UpstreamTimeout: cfg.Gateway.UpstreamTimeout,
	}
	if repo != nil {
		opts.History = repo
	}
	if influxClient != nil {
		opts.Telemetry = influxClient
	}
	if hub != nil {
		opts.Events = hub
	}

	svc, err := gateway.New(opts)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("starting gateway: %w", err)
	}
	defer svc.Stop()

	if cfg.API.Enabled {
		apiServer, apiErr := startAPI(ctx, cfg, log, apiDeps{
			store:   store,
			repo:    repo,
			db:      db,
			metrics: m,
			mqtt:    mqttClient,
			influx:  influxClient,
			hub:     hub,
		})
		if apiErr != nil {
			log.Error("status API unavailable", "error", apiErr)
		} else {
			defer func() {
				if closeErr := apiServer.Close(); closeErr != nil {
					log.Error("error closing API server", "error", closeErr)
				}
			}()
		}
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API, gateway, MQTT (publishes
	// offline status), InfluxDB, history database.
	return nil
}

// openHistory opens and migrates the lookup history database. It returns
// nils when history is disabled or unavailable.
func openHistory(ctx context.Context, cfg *config.Config, log *logging.Logger) (*database.DB, *history.Repository) {
	if !cfg.History.Enabled {
		log.Info("lookup history disabled")
		return nil, nil
	}

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.History.Path,
		WALMode:     cfg.History.WALMode,
		BusyTimeout: cfg.History.BusyTimeout,
	})
	if err != nil {
		log.Warn("lookup history unavailable", "path", cfg.History.Path, "error", err)
		return nil, nil
	}
	if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
		log.Warn("lookup history migrations failed", "error", err)
		db.Close() //nolint:errcheck // Already failing
		return nil, nil
	}

	log.Info("lookup history ready", "path", db.Path())
	return db, history.NewRepository(db)
}

// connectInflux connects to InfluxDB when enabled. Failure disables
// telemetry rather than stopping the gateway.
func connectInflux(ctx context.Context, cfg *config.Config, log *logging.Logger) *influxdb.Client {
	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
		return nil
	case err != nil:
		log.Warn("InfluxDB unavailable, telemetry disabled", "url", cfg.InfluxDB.URL, "error", err)
		return nil
	}

	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client
}

// apiDeps collects the optional components exposed by the status API.
type apiDeps struct {
	store   *moodstore.Store
	repo    *history.Repository
	db      *database.DB
	metrics *metrics.Metrics
	mqtt    *mqtt.Client
	influx  *influxdb.Client
	hub     *api.Hub
}

func startAPI(ctx context.Context, cfg *config.Config, log *logging.Logger, d apiDeps) (*api.Server, error) {
	deps := api.Deps{
		Config:  cfg.API,
		Logger:  log.With("component", "api"),
		Moods:   d.store,
		Metrics: d.metrics,
		Hub:     d.hub,
		Checks:  map[string]api.HealthChecker{"mqtt": d.mqtt},
		Version: version,
	}
	if d.repo != nil {
		deps.History = d.repo
	}
	if d.db != nil {
		deps.DB = d.db
		deps.Checks["database"] = d.db
	}
	if d.influx != nil {
		deps.Checks["influxdb"] = d.influx
	}

	server, err := api.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	return server, nil
}
