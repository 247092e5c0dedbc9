package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/jroosing/hydrahost/internal/api/handlers"
	"github.com/jroosing/hydrahost/internal/api/middleware"
	"github.com/jroosing/hydrahost/internal/config"
	"github.com/jroosing/hydrahost/internal/metrics"

	_ "github.com/jroosing/hydrahost/internal/api/docs" // swagger docs
)

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, cfg config.APIConfig, registry *metrics.Registry) {
	// Swagger UI at /swagger/*
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus scrapers usually cannot send custom headers, so /metrics
	// stays outside the API key group.
	if registry != nil {
		r.GET("/metrics", gin.WrapH(registry.Handler()))
	}

	api := r.Group("/api/v1")

	// Optional API key protection.
	if cfg.APIKey != "" {
		api.Use(middleware.RequireAPIKey(cfg.APIKey))
	}

	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)

	api.GET("/servers", h.ListServers)
	api.GET("/servers/:name", h.GetServer)
	api.GET("/servers/:name/health", h.ServerHealth)
	api.POST("/servers/:name/start", h.StartServer)
	api.POST("/servers/:name/stop", h.StopServer)
	api.POST("/servers/:name/reset", h.ResetServer)

	api.GET("/dns/records", h.ListDNSRecords)
	api.POST("/dns/records", h.AddDNSRecord)
	api.DELETE("/dns/records/:name", h.DeleteDNSRecord)
}
