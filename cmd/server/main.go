package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/reservespace/backend/internal/featureflags"
	"github.com/reservespace/backend/internal/handler"
	"github.com/reservespace/backend/internal/infrastructure/logger"
	"github.com/reservespace/backend/internal/infrastructure/redis"
	"github.com/reservespace/backend/internal/observability/metrics"
	"github.com/reservespace/backend/internal/observability/tracing"
	"github.com/reservespace/backend/internal/reliability/circuitbreaker"
	"github.com/reservespace/backend/internal/repository"
	"github.com/reservespace/backend/internal/security"
	"github.com/reservespace/backend/internal/security/audit"
	"github.com/reservespace/backend/internal/security/auth"
	"github.com/reservespace/backend/internal/security/middleware"
	"github.com/reservespace/backend/internal/security/ratelimit"
	"github.com/reservespace/backend/internal/service"
	"github.com/reservespace/backend/internal/worker"
	"github.com/reservespace/backend/pkg/cache"
	"github.com/reservespace/backend/pkg/config"
	"github.com/reservespace/backend/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting ReserveSpace server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op unless OTEL_EXPORTER_OTLP_ENDPOINT is set)
	shutdownTracing, err := tracing.Init(ctx, log, "reservespace", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Connect to Postgres and ensure the schema
	dbPool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to Postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Connect to Redis (booking locks)
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 6. Initialize repositories
	userRepo := repository.NewPostgresUserRepository(dbPool.GetDB(), log)
	spaceRepo := repository.NewPostgresSpaceRepository(dbPool.GetDB(), log)
	reservationRepo := repository.NewPostgresReservationRepository(dbPool.GetDB(), log)
	notificationRepo := repository.NewPostgresNotificationRepository(dbPool.GetDB(), log)

	// 7. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "reservespace")
	authz := security.NewAuthorizationService(log)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMin, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 8. Initialize services
	lockBreaker := circuitbreaker.New(5, 2, 30*time.Second)
	lockBreaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		log.Warn("booking lock breaker state change",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	authService := service.NewAuthService(userRepo, tokenManager, cfg.TokenTTL, log)
	notificationService := service.NewNotificationService(notificationRepo, log)
	spaceService := service.NewSpaceService(spaceRepo, reservationRepo, cache.New(), cfg.SpaceCacheTTL, log)
	reservationService := service.NewReservationService(
		reservationRepo, spaceRepo, userRepo,
		redisClient, lockBreaker, authz, notificationService, cfg, log,
	)
	allocationService := service.NewAllocationService(spaceRepo, reservationRepo, cfg, log)

	// 9. Initialize handlers
	authHandler := handler.NewAuthHandler(authService, log)
	spaceHandler := handler.NewSpaceHandler(spaceService, authz, log)
	reservationHandler := handler.NewReservationHandler(reservationService, log)
	allocationHandler := handler.NewAllocationHandler(allocationService, log)
	notificationHandler := handler.NewNotificationHandler(notificationService, log)
	streamHandler := handler.NewNotificationStreamHandler(notificationService, tokenManager, log, cfg.CORSAllowedOrigins)
	healthHandler := handler.NewHealthHandler(dbPool, redisClient, log)

	// 10. Setup HTTP routes
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/change-password", authHandler.ChangePassword)

	mux.HandleFunc("GET /api/spaces", spaceHandler.List)
	mux.HandleFunc("GET /api/spaces/available", spaceHandler.ListAvailable)
	mux.HandleFunc("GET /api/spaces/{id}", spaceHandler.Get)
	mux.HandleFunc("POST /api/spaces", spaceHandler.Create)
	mux.HandleFunc("PUT /api/spaces/{id}", spaceHandler.Update)
	mux.HandleFunc("DELETE /api/spaces/{id}", spaceHandler.Delete)
	mux.HandleFunc("GET /api/spaces/{id}/slots", allocationHandler.Slots)
	mux.HandleFunc("POST /api/allocation/optimal", allocationHandler.Optimal)

	mux.HandleFunc("GET /api/reservations", reservationHandler.ListAll)
	mux.HandleFunc("GET /api/reservations/my", reservationHandler.ListMine)
	mux.HandleFunc("GET /api/reservations/{id}", reservationHandler.Get)
	mux.HandleFunc("POST /api/reservations", reservationHandler.Create)
	mux.HandleFunc("PUT /api/reservations/{id}", reservationHandler.Update)
	mux.HandleFunc("POST /api/reservations/{id}/cancel", reservationHandler.Cancel)
	mux.HandleFunc("DELETE /api/reservations/{id}", reservationHandler.Delete)

	mux.HandleFunc("GET /api/notifications", notificationHandler.List)
	mux.HandleFunc("POST /api/notifications/{id}/read", notificationHandler.MarkRead)
	mux.HandleFunc("DELETE /api/notifications/{id}", notificationHandler.Delete)

	// Kill switch for the live feed; polling /api/notifications still works.
	if !featureflags.Enabled("disable_notification_stream") {
		mux.Handle("GET /ws/notifications", streamHandler)
	}

	mux.HandleFunc("GET /api/health", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> content type -> JWT -> rate limit -> audit -> CORS
	rootHandler := withRequestID(
		metrics.HTTPMiddleware(
			middleware.ValidateJSONContentType(log)(
				middleware.JWTMiddleware(tokenManager, log)(
					middleware.RateLimitMiddleware(rateLimiter, log)(
						middleware.AuditMiddleware(auditLogger)(handlerWithCORS),
					),
				),
			),
		),
		log,
	)
	rootHandler = otelhttp.NewHandler(rootHandler, "reservespace")

	// 11. Start completion sweeper in background
	completionWorker := worker.NewCompletionWorker(reservationRepo, log, cfg.SweepInterval)
	go completionWorker.Start(ctx)

	// 12. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMin),
		slog.Duration("sweep_interval", cfg.SweepInterval),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop the completion worker
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
