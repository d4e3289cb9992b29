package handler

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/diary/internal/security"
	"github.com/kube-rca/diary/internal/service"
)

type RouterDeps struct {
	Prefix         string
	Version        string
	AllowedOrigins []string
	Auth           *service.AuthService
	Stats          *service.StatsService
	Logger         *slog.Logger
}

// NewRouter wires every route under deps.Prefix.
func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	// The access gate must see the socket address, not X-Forwarded-For.
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("configure trusted proxies: %w", err)
	}
	router.Use(gin.Recovery(), RequestLogger(logger), CORSMiddleware(deps.AllowedOrigins))

	health := NewHealthHandler(deps.Version)
	auth := NewAuthHandler(deps.Auth, logger)
	stats := NewStatsHandler(deps.Stats, logger)

	api := router.Group(deps.Prefix)
	api.GET("/", health.Root)
	api.GET("/openapi.json", OpenAPIDoc)
	api.POST("/register", auth.Register)
	api.POST("/login", auth.Login)
	api.GET("/stats",
		AccessGateMiddleware(security.IsAllowed, logger),
		AuthMiddleware(deps.Auth, logger),
		stats.Stats,
	)

	return router, nil
}
