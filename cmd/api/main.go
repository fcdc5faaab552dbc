package main

import (
	"context"
	"log"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"github.com/macrotracker/intake-service/internal/config"
	"github.com/macrotracker/intake-service/internal/dbmigrate"
	"github.com/macrotracker/intake-service/internal/httpserver"
	"github.com/macrotracker/intake-service/internal/logger"
)

func main() {
	cfg := config.Load()

	printStartupBanner(cfg)

	if cfg.RunMigrationsOnStartup {
		dbURL, source, _, err := dbmigrate.SelectDatabaseURL(cfg, true)
		if err != nil {
			log.Fatalf("FATAL startup migrations: %v", err)
		}

		log.Printf("startup migrations: command=up using=%s", source)
		if err := dbmigrate.Run("up", dbURL, dbmigrate.DefaultMigrationsDir); err != nil {
			log.Fatalf("FATAL startup migrations failed: %v", err)
		}
		log.Printf("startup migrations: completed")
	}

	validateProductionConfig(cfg)

	appLog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("FATAL logger init: %v", err)
	}
	defer appLog.Sync()

	server := httpserver.New(cfg, appLog)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server.StartConsumer(ctx)

	log.Fatal(server.Start())
}

// printStartupBanner logs a one-time summary of the resolved configuration.
// No secrets are ever printed, only masked indicators ("set" / "not set").
func printStartupBanner(cfg *config.Config) {
	log.Println("========== Intake Service ==========")
	log.Printf("  env              = %s", cfg.Env)
	log.Printf("  port             = %d", cfg.Port)

	// ---- Database ----
	log.Println("---- database ----")
	log.Printf("  runtime_url      = %s", describeDBURL(cfg.DatabaseURL))
	log.Printf("  direct           = %s", setOrNot(cfg.DatabaseURLDirect))
	log.Printf("  migrations_on_startup = %t", cfg.RunMigrationsOnStartup)
	if cfg.RunMigrationsOnStartup && cfg.DatabaseURLDirect == "" {
		log.Printf("  migrations_via   = (will fail, DATABASE_URL_DIRECT not set)")
	}

	// ---- Redis ----
	log.Println("---- redis ----")
	log.Printf("  addr             = %s", cfg.RedisAddr)
	log.Printf("  db               = %d", cfg.RedisDB)
	log.Printf("  cache_ttl        = %ds", cfg.CacheTTLSeconds)
	log.Printf("  dedup_ttl        = %ds", cfg.DedupTTLSeconds)

	// ---- Food catalog ----
	log.Println("---- food catalog ----")
	log.Printf("  url              = %s", cfg.FoodServiceURL)
	log.Printf("  timeout          = %ds", cfg.FoodClientTimeoutSeconds)
	log.Printf("  max_retries      = %d", cfg.FoodClientMaxRetries)

	// ---- Auth ----
	log.Println("---- auth ----")
	log.Printf("  auth_mode        = %s", cfg.AuthMode)
	if cfg.AuthMode == config.AuthModeJWT {
		log.Printf("  jwt_secret       = %s", setOrNot(cfg.JWTSecret))
	}

	log.Println("====================================")
}

// validateProductionConfig performs fatal checks that only matter in non-local envs.
func validateProductionConfig(cfg *config.Config) {
	isProd := cfg.Env == "production" || cfg.Env == "staging"
	if !isProd {
		return
	}

	if cfg.DatabaseURL == "" {
		log.Fatalf("FATAL db: no DATABASE_URL configured in %s", cfg.Env)
	}
	if cfg.AuthMode == config.AuthModeJWT && strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("FATAL auth: AUTH_MODE=jwt requires JWT_SECRET in %s", cfg.Env)
	}
}

// ---- helpers (no secrets) ----

func setOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

func describeDBURL(runtime string) string {
	if runtime == "" {
		return "not set (will use in-memory storage)"
	}
	return "set"
}
