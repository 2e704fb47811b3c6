package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Divy1030/Code-Arena-Backend/internal/config"
)

// CORSMiddleware returns a CORS middleware configured for the environment
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	log.Printf("[CORS] Environment: %s, Origin: %s", cfg.Environment, cfg.CORSOrigin)

	corsConfig := cors.Config{
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Authorization",
			"Accept", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders: []string{
			"Content-Length",
		},
		// Credentials stay on in every environment: auth rides on the
		// accessToken cookie.
		AllowCredentials: true,
		MaxAge:           12 * time.Hour, // Cache preflight responses
	}

	if cfg.Environment == "development" {
		allowed := []string{
			"http://localhost:5173", // Vite dev server
			"http://127.0.0.1:5173",
		}
		if cfg.CORSOrigin != "" {
			allowed = append(allowed, cfg.CORSOrigin)
		}
		corsConfig.AllowOrigins = allowed
	} else {
		if cfg.CORSOrigin == "" {
			log.Printf("[CORS] CORS_ORIGIN unset, cross-origin requests will be refused")
		}
		corsConfig.AllowOrigins = []string{cfg.CORSOrigin}
	}

	return cors.New(corsConfig)
}

// AllowedWebSocketOrigin validates Origin headers on websocket upgrades.
// Browsers enforce CORS preflights on XHR but not on websocket
// handshakes, so the upgrader checks explicitly.
func AllowedWebSocketOrigin(cfg *config.Config, origin string) bool {
	if origin == "" {
		// Non-browser clients (CLIs, tests) send no Origin header.
		return true
	}
	if cfg.Environment == "development" {
		if strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:") {
			return true
		}
	}
	return cfg.CORSOrigin != "" && origin == cfg.CORSOrigin
}
