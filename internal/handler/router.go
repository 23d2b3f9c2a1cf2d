package handler

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CORSConfig lists the allowed origins, methods and headers as comma-separated values
type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// NewRouter registers every route on a new gin engine
func NewRouter(query *QueryHandler, system *SystemHandler, corsCfg CORSConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	origins := splitList(nil, corsCfg.AllowedOrigins)
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = splitList(corsConfig.AllowMethods, corsCfg.AllowedMethods)
	corsConfig.AllowHeaders = splitList(corsConfig.AllowHeaders, corsCfg.AllowedHeaders)
	router.Use(cors.New(corsConfig))

	router.GET("/health", system.Health)
	router.GET("/version", system.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Bare alias kept for existing clients
	router.POST("/query", query.Query)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/query", query.Query)
		apiV1.POST("/query/stream", query.QueryStream)
		apiV1.GET("/tools", system.Tools)
	}

	return router
}

func splitList(fallback []string, value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
