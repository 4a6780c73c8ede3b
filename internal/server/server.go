package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"clothes-shop/internal/config"
	"clothes-shop/internal/database"
	custommiddleware "clothes-shop/internal/middleware"
	"clothes-shop/internal/notification"
	"clothes-shop/internal/repository"
	"clothes-shop/internal/service"
	"clothes-shop/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

// NewServer wires repositories, services and handlers onto one router.
// redisClient may be nil, in which case rate limiting is skipped.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client, sender notification.Sender) *Server {
	router := chi.NewRouter()

	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))
	router.Use(custommiddleware.DefaultMiddlewareStack(logger)...)

	router.Get("/health", healthHandler(db, redisClient))

	// Initialize services
	store := repository.NewStore(db.DB(), logger)
	userService := service.NewUserService(store, sender, service.UserServiceConfig{
		JWTSecret:     cfg.JWT.Secret,
		AccessExpiry:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
		ResetExpiry:   time.Duration(cfg.JWT.ResetExpiry) * time.Minute,
		ResetURL:      cfg.Server.PublicURL + "/reset-password",
	}, logger)
	catalogService := service.NewCatalogService(store, logger)
	cartService := service.NewCartService(store, logger)
	orderService := service.NewOrderService(store, logger)
	policyService := service.NewPolicyService(store, logger)

	// Initialize handlers
	userHandler := transport.NewUserHandler(userService, logger)
	catalogHandler := transport.NewCatalogHandler(catalogService, logger)
	cartHandler := transport.NewCartHandler(cartService, logger)
	orderHandler := transport.NewOrderHandler(orderService, logger)
	adminHandler := transport.NewAdminHandler(orderService, policyService, logger)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	adminMiddleware := custommiddleware.RequireAdmin(logger)
	loginLimiter := rateLimiter(redisClient, cfg.RateLimit, cfg.RateLimit.LoginRequests, "ratelimit:login", logger)
	orderLimiter := rateLimiter(redisClient, cfg.RateLimit, cfg.RateLimit.OrderRequests, "ratelimit:orders", logger)

	// Register routes
	userHandler.RegisterRoutes(router, authMiddleware, loginLimiter)
	catalogHandler.RegisterRoutes(router)
	cartHandler.RegisterRoutes(router, authMiddleware)
	orderHandler.RegisterRoutes(router, authMiddleware, orderLimiter)
	router.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(adminMiddleware)
		catalogHandler.RegisterAdminRoutes(r)
		adminHandler.RegisterRoutes(r)
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      otelhttp.NewHandler(router, "http.server"),
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func rateLimiter(client *redis.Client, cfg config.RateLimitConfig, requests int, prefix string, logger *zap.Logger) func(http.Handler) http.Handler {
	if client == nil || !cfg.Enabled || requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return custommiddleware.RateLimitMiddleware(client, custommiddleware.RateLimitConfig{
		RequestsPerWindow: requests,
		Window:            cfg.Window,
		KeyPrefix:         prefix,
	}, logger)
}

func healthHandler(db database.Service, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]interface{}{"status": "ok"}

		dbHealth := db.Health()
		body["database"] = dbHealth
		if dbHealth["status"] != "up" {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}

		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				// The limiter fails open, so redis being down does not fail the check
				body["redis"] = "down"
			} else {
				body["redis"] = "up"
			}
		}

		custommiddleware.RespondWithJSON(w, status, body)
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
