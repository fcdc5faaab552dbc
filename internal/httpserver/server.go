package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/macrotracker/intake-service/internal/cache"
	"github.com/macrotracker/intake-service/internal/config"
	"github.com/macrotracker/intake-service/internal/dedup"
	"github.com/macrotracker/intake-service/internal/events"
	"github.com/macrotracker/intake-service/internal/foodclient"
	"github.com/macrotracker/intake-service/internal/intakes"
	"github.com/macrotracker/intake-service/internal/kv"
	"github.com/macrotracker/intake-service/internal/logger"
	"github.com/macrotracker/intake-service/internal/meals"
	"github.com/macrotracker/intake-service/internal/storage"
	"github.com/macrotracker/intake-service/internal/storage/memory"
	"github.com/macrotracker/intake-service/internal/storage/postgres"
)

// Server wires storage, Redis, the food client and the HTTP routes.
type Server struct {
	config *config.Config
	mux    *http.ServeMux
	log    *logger.Logger

	intakeStorage   storage.IntakeStorage
	templateStorage storage.TemplateStorage
	closeStorage    func() error

	redis   *goredis.Client
	kvStore kv.Store
	bus     events.Bus

	intakeService *intakes.Service
}

// New builds a fully wired server. Without a database or Redis it runs
// on in-memory backends, which keeps local development dependency-free.
func New(cfg *config.Config, log *logger.Logger) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
		log:    log,
	}

	s.initStorage()
	s.initRedis()
	s.routes()
	return s
}

func (s *Server) initStorage() {
	if s.config.DatabaseURL == "" {
		s.log.Info("using in-memory storage")
		s.useMemoryStorage()
		return
	}

	s.log.Info("connecting to PostgreSQL")
	pg, err := postgres.New(context.Background(), s.config.DatabaseURL)
	if err != nil {
		s.log.Error("PostgreSQL connection failed, falling back to in-memory storage", "error", err)
		s.useMemoryStorage()
		return
	}
	s.log.Info("PostgreSQL connected")
	s.intakeStorage = pg.GetIntakeStorage()
	s.templateStorage = pg.GetTemplateStorage()
	s.closeStorage = pg.Close
}

func (s *Server) useMemoryStorage() {
	mem := memory.New()
	s.intakeStorage = mem.GetIntakeStorage()
	s.templateStorage = mem.GetTemplateStorage()
	s.closeStorage = mem.Close
}

func (s *Server) initRedis() {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        s.config.RedisAddr,
		DB:          s.config.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		s.log.Error("Redis connection failed, falling back to in-memory cache and bus", "addr", s.config.RedisAddr, "error", err)
		_ = rdb.Close()
		s.kvStore = kv.NewMemoryStore()
		s.bus = events.NewMemoryBus()
		return
	}

	s.log.Info("Redis connected", "addr", s.config.RedisAddr)
	s.redis = rdb
	s.kvStore = kv.NewRedisStoreFromClient(rdb)
	s.bus = events.NewRedisBus(rdb, fmt.Sprintf("intake-service-%d", s.config.Port), s.log)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	foodClient := foodclient.NewClient(
		s.config.FoodServiceURL,
		time.Duration(s.config.FoodClientTimeoutSeconds)*time.Second,
		s.config.FoodClientMaxRetries,
		time.Duration(s.config.FoodClientRetryDelayMs)*time.Millisecond,
		s.log,
	)
	appCache := cache.New(s.kvStore, time.Duration(s.config.CacheTTLSeconds)*time.Second, s.log)
	dedupStore := dedup.NewStore(s.kvStore, time.Duration(s.config.DedupTTLSeconds)*time.Second, s.log)

	s.intakeService = intakes.NewService(
		s.intakeStorage,
		foodClient,
		dedupStore,
		appCache,
		s.log,
		s.config.DefaultPageSize,
		s.config.DeleteBatchSize,
	)
	intakesHandler := intakes.NewHandlers(s.intakeService)

	// Intake API
	s.mux.HandleFunc("GET /api/intake", intakesHandler.HandleList)
	s.mux.HandleFunc("POST /api/intake", intakesHandler.HandleCreate)
	s.mux.HandleFunc("PATCH /api/intake/{id}", intakesHandler.HandleUpdate)
	s.mux.HandleFunc("DELETE /api/intake/{id}", intakesHandler.HandleDelete)

	mealsService := meals.NewService(s.templateStorage, s.intakeStorage, foodClient, appCache, s.log)
	mealsHandler := meals.NewHandlers(mealsService)

	// Meal templates API
	s.mux.HandleFunc("GET /api/meals", mealsHandler.HandleList)
	s.mux.HandleFunc("POST /api/meals", mealsHandler.HandleCreate)
	s.mux.HandleFunc("PUT /api/meals/{id}", mealsHandler.HandleUpdate)
	s.mux.HandleFunc("DELETE /api/meals/{id}", mealsHandler.HandleDelete)
	s.mux.HandleFunc("POST /api/meals/{id}/apply", mealsHandler.HandleApply)
	s.mux.HandleFunc("DELETE /api/meals/group/{groupId}", mealsHandler.HandleRevert)
}

// IntakeService exposes the intake service for the event consumer.
func (s *Server) IntakeService() *intakes.Service {
	return s.intakeService
}

// Bus exposes the event bus the server was wired with.
func (s *Server) Bus() events.Bus {
	return s.bus
}

// StartConsumer runs the user-deletion consumer until ctx is cancelled.
// It is a no-op when the server runs on the in-memory bus.
func (s *Server) StartConsumer(ctx context.Context) {
	redisBus, ok := s.bus.(*events.RedisBus)
	if !ok {
		s.log.Warn("event consumer disabled: not connected to Redis")
		return
	}
	consumer := events.NewUserDeletionConsumer(s.intakeService, s.bus, s.log)
	go func() {
		if err := redisBus.Consume(ctx, consumer.Handle); err != nil && ctx.Err() == nil {
			s.log.Error("event consumer stopped", "error", err)
		}
	}()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Handler returns the full middleware chain (outermost first):
// CORS → Rate Limit → Trace → Auth → Router.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = AuthMiddleware(s.config, s.log, handler)
	handler = TraceMiddleware(s.log, handler)
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// Start runs the HTTP server until it fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.log.Info("server listening", "addr", addr)
	s.log.Info("health check ready", "url", fmt.Sprintf("http://localhost%s/healthz", addr))

	return http.ListenAndServe(addr, s.Handler())
}

// Close releases storage and Redis connections.
func (s *Server) Close() error {
	var firstErr error
	if s.closeStorage != nil {
		firstErr = s.closeStorage()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
