package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

const (
	AuthModeGateway = "gateway"
	AuthModeJWT     = "jwt"
)

// Config holds the application configuration.
type Config struct {
	Env      string // local | staging | prod
	Port     int
	LogLevel string

	// Database
	DatabaseURL       string // runtime connection
	DatabaseURLDirect string // for migrations / DDL (may be empty)

	// Redis (cache, dedup markers, event stream)
	RedisAddr string
	RedisDB   int

	// Food catalog service
	FoodServiceURL           string
	FoodClientTimeoutSeconds int
	FoodClientMaxRetries     int
	FoodClientRetryDelayMs   int

	// Cache / dedup
	CacheTTLSeconds int
	DedupTTLSeconds int

	// Listing and deletion
	DefaultPageSize int
	DeleteBatchSize int

	// CORS
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Rate Limiting
	RateLimitRPS   int
	RateLimitBurst int

	// Authentication: behind a gateway the X-User-Id header is trusted;
	// standalone deployments verify a JWT bearer token instead.
	AuthMode  string // gateway | jwt
	JWTSecret string

	// Migrations
	RunMigrationsOnStartup bool
}

// Load reads the configuration from environment variables.
func Load() *Config {
	// APP_ENV (default: local)
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}

	// PORT (default: 8080)
	port := envInt("PORT", 8080)

	// LOG_LEVEL (default: debug)
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "debug"
	}

	// ---------- Database ----------
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	dbDirect := strings.TrimSpace(os.Getenv("DATABASE_URL_DIRECT"))
	if dbURL == "" {
		dbURL = dbDirect
	}

	// ---------- Redis ----------
	redisAddr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisDB := envInt("REDIS_DB", 0)

	// ---------- Food catalog ----------
	foodServiceURL := strings.TrimSpace(os.Getenv("FOOD_SERVICE_URL"))
	if foodServiceURL == "" {
		foodServiceURL = "http://localhost:8081"
	}
	foodTimeout := envInt("FOOD_CLIENT_TIMEOUT_SECONDS", 10)
	foodMaxRetries := envInt("FOOD_CLIENT_MAX_RETRIES", 3)
	foodRetryDelayMs := envInt("FOOD_CLIENT_RETRY_DELAY_MS", 1000)

	// ---------- Cache / dedup ----------
	// CACHE_TTL_SECONDS (default: 21600 = 6 hours)
	cacheTTL := envInt("CACHE_TTL_SECONDS", 21600)
	// DEDUP_TTL_SECONDS (default: 3600 = 1 hour)
	dedupTTL := envInt("DEDUP_TTL_SECONDS", 3600)

	// DEFAULT_PAGE_SIZE (default: 20)
	defaultPageSize := envInt("DEFAULT_PAGE_SIZE", 20)
	// DELETE_BATCH_SIZE (default: 1000)
	deleteBatchSize := envInt("DELETE_BATCH_SIZE", 1000)

	// ---------- CORS ----------
	corsOrigins := parseCORSOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"), env)
	corsAllowCreds := parseBoolEnv("CORS_ALLOW_CREDENTIALS")

	// ---------- Rate Limiting ----------
	rateLimitRPS := envInt("RATE_LIMIT_RPS", 0)
	rateLimitBurst := envInt("RATE_LIMIT_BURST", 0)

	// ---------- Authentication ----------
	authMode := strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_MODE")))
	if authMode == "" {
		authMode = AuthModeGateway
	}
	if authMode != AuthModeGateway && authMode != AuthModeJWT {
		log.Printf("WARNING: unknown AUTH_MODE=%q, fallback to %s", authMode, AuthModeGateway)
		authMode = AuthModeGateway
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if authMode == AuthModeJWT && jwtSecret == "" {
		log.Printf("WARNING: AUTH_MODE=jwt but JWT_SECRET is empty, all requests will be rejected")
	}

	// ---------- Migrations ----------
	runMigrationsOnStartup := parseBoolEnv("RUN_MIGRATIONS_ON_STARTUP")

	return &Config{
		Env:      env,
		Port:     port,
		LogLevel: logLevel,

		DatabaseURL:       dbURL,
		DatabaseURLDirect: dbDirect,

		RedisAddr: redisAddr,
		RedisDB:   redisDB,

		FoodServiceURL:           foodServiceURL,
		FoodClientTimeoutSeconds: foodTimeout,
		FoodClientMaxRetries:     foodMaxRetries,
		FoodClientRetryDelayMs:   foodRetryDelayMs,

		CacheTTLSeconds: cacheTTL,
		DedupTTLSeconds: dedupTTL,

		DefaultPageSize: defaultPageSize,
		DeleteBatchSize: deleteBatchSize,

		CORSAllowedOrigins:   corsOrigins,
		CORSAllowCredentials: corsAllowCreds,

		RateLimitRPS:   rateLimitRPS,
		RateLimitBurst: rateLimitBurst,

		AuthMode:  authMode,
		JWTSecret: jwtSecret,

		RunMigrationsOnStartup: runMigrationsOnStartup,
	}
}

func parseCORSOrigins(raw, env string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if env == "local" {
			return []string{"http://localhost:3000"}
		}
		return nil // prod: deny by default
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// envInt reads an int env var with a default value.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
