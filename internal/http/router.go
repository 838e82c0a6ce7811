package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/prefabstore/internal/config"
	"github.com/geocoder89/prefabstore/internal/domain/user"
	"github.com/geocoder89/prefabstore/internal/http/handlers"
	"github.com/geocoder89/prefabstore/internal/http/middlewares"
	"github.com/geocoder89/prefabstore/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// AuthService is everything the HTTP layer needs from the auth gateway.
type AuthService interface {
	handlers.AuthService
	middlewares.TokenAuthenticator
}

type Deps struct {
	Log    *slog.Logger
	Config config.Config
	Auth   AuthService

	// optional
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Checks   map[string]handlers.Check
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware("prefabstore"))
	r.Use(middlewares.SecurityHeaders(deps.Config.IsProd()))
	r.Use(middlewares.CORSMiddleware(deps.Config.CORSAllowedOrigins))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.MaxBodyBytes(middlewares.DefaultMaxBody))
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(deps.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", observability.MetricsHandler(deps.Gatherer))
	}

	authMW := middlewares.NewAuthMiddleware(deps.Auth, log)
	authHandler := handlers.NewAuthHandler(deps.Auth, log)
	usersHandler := handlers.NewUsersHandler(deps.Auth, log)

	limit := deps.Config.AuthRateLimit
	if limit <= 0 {
		limit = 20
	}
	window := deps.Config.AuthRateWindow
	if window <= 0 {
		window = time.Minute
	}
	credLimiter := middlewares.NewRateLimiter(limit, window)

	authGroup := r.Group("/auth")
	authGroup.POST("/register", credLimiter.Middleware(middlewares.KeyByIP), authHandler.Register)
	authGroup.POST("/login", credLimiter.Middleware(middlewares.KeyByIP), authHandler.Login)

	sessionLimiter := middlewares.NewRateLimiter(limit*5, window)

	session := authGroup.Group("", authMW.RequireAuth(), sessionLimiter.Middleware(middlewares.KeyByUserOrIP))
	session.GET("/me", authHandler.Me)
	session.POST("/logout", authHandler.Logout)

	// personnel console
	admin := r.Group("/admin", authMW.RequireAuth(), authMW.RequireRole(user.RoleAdmin, user.RolePersonnel))
	admin.GET("/users/:id", usersHandler.GetUser)

	return r
}
