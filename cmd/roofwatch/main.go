// Roofwatch Core - admission pipeline for the roofing client portal.
//
// This is the main entry point. It wires the identity provider, profile
// store, ownership resolver, CSRF guard and rate limiter into the HTTP API
// and runs until interrupted.
//
// Usage:
//
//	roofwatch                         run the server
//	roofwatch migrate up|down|status  manage the database schema
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/roofwatch-core/migrations"

	"github.com/nerrad567/roofwatch-core/internal/api"
	"github.com/nerrad567/roofwatch-core/internal/audit"
	"github.com/nerrad567/roofwatch-core/internal/auth"
	"github.com/nerrad567/roofwatch-core/internal/csrf"
	"github.com/nerrad567/roofwatch-core/internal/infrastructure/config"
	"github.com/nerrad567/roofwatch-core/internal/infrastructure/database"
	"github.com/nerrad567/roofwatch-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/roofwatch-core/internal/infrastructure/logging"
	"github.com/nerrad567/roofwatch-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/roofwatch-core/internal/infrastructure/redis"
	"github.com/nerrad567/roofwatch-core/internal/notify"
	"github.com/nerrad567/roofwatch-core/internal/portal"
	"github.com/nerrad567/roofwatch-core/internal/ratelimit"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		action := ""
		if len(os.Args) > 2 {
			action = os.Args[2]
		}
		err = runMigrate(ctx, action, os.Stdout)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Roofwatch Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	db, err := database.Open(ctx, database.Config{
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", db.Path())

	health := map[string]api.HealthChecker{"database": db}

	// Rate limit counting store
	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		var counter ratelimit.Counter
		switch cfg.RateLimit.Backend {
		case config.RateLimitBackendRedis:
			rdb, redisErr := redis.Connect(ctx, cfg.Redis)
			if redisErr != nil {
				return fmt.Errorf("connecting to redis: %w", redisErr)
			}
			defer func() {
				if closeErr := rdb.Close(); closeErr != nil {
					log.Error("error closing redis", "error", closeErr)
				}
			}()
			health["redis"] = rdb
			counter = ratelimit.NewRedisCounter(rdb.Client)
		default:
			log.Warn("using in-process rate limit counter; limits are per instance")
			counter = ratelimit.NewMemoryCounter()
		}
		limiter = ratelimit.NewLimiter(counter, cfg.RateLimit.KeyPrefix)
		log.Info("rate limiting enabled",
			"backend", cfg.RateLimit.Backend,
			"fail_open", cfg.RateLimit.FailOpen,
		)
	} else {
		log.Warn("rate limiting disabled")
	}

	provider, signIn := identityProvider(cfg.Identity)
	log.Info("identity provider configured", "provider", cfg.Identity.Provider)

	store := auth.NewSQLiteStore(db.DB)
	deps := api.Deps{
		Config:     cfg.API,
		RateLimit:  cfg.RateLimit,
		Logger:     log,
		Authorizer: auth.NewAuthorizer(auth.NewTokenAuthenticator(provider), auth.NewProfileResolver(store)),
		Ownership:  auth.NewOwnershipResolver(store),
		SignIn:     signIn,
		CSRF:       csrf.New(cfg.CSRF),
		Limiter:    limiter,
		Portal:     portal.NewSQLiteRepository(db.DB),
		Audit:      audit.NewSQLiteRepository(db.DB),
		Health:     health,
		Version:    version,
	}

	// Event fan-out (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		health["mqtt"] = mqttClient
		deps.Events = notify.NewMQTTPublisher(mqttClient)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled, portal events are not published")
	}

	// Admission telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		health["influxdb"] = influxClient
		deps.Telemetry = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: API server (drains
	// queued audit entries and events), InfluxDB, MQTT, Redis, database.
	return nil
}

// runMigrate applies, rolls back or reports schema migrations without
// starting the server.
func runMigrate(ctx context.Context, action string, out io.Writer) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // read-mostly command

	switch action {
	case "up":
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	case "down":
		if err := db.MigrateDown(ctx); err != nil {
			return fmt.Errorf("rolling back migration: %w", err)
		}
	case "status":
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or status)", action)
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	fmt.Fprintf(out, "database: %s\n", db.Path())
	for _, r := range applied {
		fmt.Fprintf(out, "applied  %s  %s\n", r.Version, r.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range pending {
		fmt.Fprintf(out, "pending  %s  %s\n", m.Version, m.Name)
	}
	return nil
}

// identityProvider builds the configured provider. The remote provider
// also handles password sign-in; the JWT provider has no login route.
func identityProvider(cfg config.IdentityConfig) (auth.IdentityProvider, auth.PasswordSignIn) {
	if cfg.Provider == config.IdentityProviderRemote {
		remote := auth.NewRemoteProvider(cfg.Remote)
		return remote, remote
	}
	return auth.NewJWTProvider(cfg.JWT.Secret, cfg.JWT.Issuer), nil
}

// getConfigPath returns the configuration file path.
// Uses ROOFWATCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ROOFWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
