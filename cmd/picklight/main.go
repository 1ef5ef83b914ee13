// PickLight Core - Pick-By-Light Warehouse Gateway
//
// This is the main entry point for the PickLight Core application.
// PickLight Core sits between warehouse picking frontends and the
// ESP32 shelf controllers:
//   - HTTP/WebSocket API for light commands and shelf management
//   - MQTT command path with per-command acknowledgment correlation
//   - SQLite registry of controllers, shelves, and positions
//   - Optional InfluxDB telemetry for command outcomes
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/picklight-core/migrations"

	"github.com/nerrad567/picklight-core/internal/ack"
	"github.com/nerrad567/picklight-core/internal/api"
	"github.com/nerrad567/picklight-core/internal/audit"
	"github.com/nerrad567/picklight-core/internal/auth"
	"github.com/nerrad567/picklight-core/internal/gateway"
	"github.com/nerrad567/picklight-core/internal/infrastructure/config"
	"github.com/nerrad567/picklight-core/internal/infrastructure/database"
	"github.com/nerrad567/picklight-core/internal/infrastructure/logging"
	"github.com/nerrad567/picklight-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/picklight-core/internal/infrastructure/telemetry"
	"github.com/nerrad567/picklight-core/internal/shelf"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/picklight.yaml"

var (
	configFlag  = flag.String("config", "", "path to configuration file")
	versionFlag = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("picklight %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Components start in dependency order (database, registry, MQTT,
// acknowledgment session, gateway, API) and the deferred closes unwind
// them in reverse, so the HTTP surface goes down before the command
// path and the command path before its transports.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting PickLight Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise shelf registry. Load marks every controller offline;
	// presence rebuilds from the register announcements that follow.
	registry := shelf.NewRegistry(shelf.NewSQLiteRepository(db.DB))
	registry.SetLogger(log)
	if loadErr := registry.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading shelf registry: %w", loadErr)
	}
	stats := registry.Stats()
	log.Info("shelf registry initialised",
		"controllers", stats.Controllers,
		"shelves", stats.Shelves,
		"positions", stats.Positions,
	)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Set up MQTT logging callbacks
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional). A nil client is a valid no-op
	// recorder, so the gateway wiring below does not branch on it.
	var influxClient *telemetry.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = telemetry.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the acknowledgment session: subscribes the per-class ack
	// wildcards and correlates controller acks back to waiting commands.
	session := ack.NewSession(mqttClient, ack.Options{
		QoS:    byte(cfg.MQTT.QoS),
		Logger: log,
	})
	if startErr := session.Start(); startErr != nil {
		return fmt.Errorf("starting acknowledgment session: %w", startErr)
	}
	defer func() {
		log.Info("stopping acknowledgment session")
		session.Stop()
	}()
	log.Info("acknowledgment session started",
		"command_timeout", cfg.GetAckTimeout(),
		"reset_timeout", cfg.GetResetAckTimeout(),
	)

	// Start the gateway: the command path between the API and the
	// shelf controllers.
	auditLog := audit.NewSQLiteRepository(db.DB)
	gw, err := gateway.NewGateway(gateway.Options{
		Transport:      mqttClient,
		Session:        session,
		Registry:       registry,
		AuditLog:       auditLog,
		Recorder:       influxClient,
		Logger:         log,
		CommandTimeout: cfg.GetAckTimeout(),
		ResetTimeout:   cfg.GetResetAckTimeout(),
	})
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	if startErr := gw.Start(); startErr != nil {
		return fmt.Errorf("starting gateway: %w", startErr)
	}
	defer func() {
		log.Info("stopping gateway")
		gw.Stop()
	}()
	log.Info("gateway started")

	// Token service (only when API auth is enabled)
	var tokens *auth.Service
	if cfg.Security.Auth.Enabled {
		tokens = auth.NewService(cfg.Security.Auth.APIKey, cfg.Security.JWT.Secret, cfg.Security.JWT.TokenTTL)
		log.Info("API authentication enabled", "token_ttl", cfg.GetTokenTTL())
	} else {
		log.Info("API authentication disabled")
	}

	// Start the HTTP/WebSocket API
	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log,
		Gateway:   gw,
		Registry:  registry,
		Audit:     auditLog,
		Tokens:    tokens,
		Ack:       session,
		DB:        db,
		Telemetry: influxClient,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"tls", cfg.API.TLS.Enabled,
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Gateway
	// 3. Acknowledgment session
	// 4. InfluxDB (if enabled)
	// 5. MQTT
	// 6. Database

	log.Info("PickLight Core stopped")
	return nil
}

// getConfigPath returns the configuration file path. The -config flag
// wins over the PICKLIGHT_CONFIG environment variable, which wins over
// the default.
func getConfigPath() string {
	if *configFlag != "" {
		return *configFlag
	}
	if path := os.Getenv("PICKLIGHT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when telemetry is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *telemetry.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
