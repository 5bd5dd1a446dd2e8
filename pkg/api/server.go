// Package api marcstream REST API
//
// @title           marcstream REST API
// @version         1.0.0
// @description     REST interface for ingesting, inspecting, and
// extracting from MARC-21 bibliographic records.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StartServer starts the HTTP server with all routes configured
func StartServer(store IRecordStore, index IIndex, config ServerConfig) error {
	// Initialize metrics
	metrics := NewMetrics()

	server := NewServer(store, index, config, metrics)

	r := Router(server, config, metrics)

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	log.Printf("Starting marcstream API on %s", addr)
	return http.ListenAndServe(addr, r)
}

// Router builds the chi router for the API.
func Router(server *Server, config ServerConfig, metrics *Metrics) chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.Handler())

	// API key authentication middleware for protected routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiKeyMiddleware(config.APIKey))

		// Health check
		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))

		// Records
		r.Post("/records", metrics.InstrumentHandler("POST", "/api/v1/records", server.handleIngest))
		r.Get("/records", metrics.InstrumentHandler("GET", "/api/v1/records", server.handleListRecords))
		r.Get("/records/{id}", metrics.InstrumentHandler("GET", "/api/v1/records/{id}", server.handleGetRecord))
		r.Get("/records/{id}/marc", metrics.InstrumentHandler("GET", "/api/v1/records/{id}/marc", server.handleGetRecordMARC))
		r.Delete("/records/{id}", metrics.InstrumentHandler("DELETE", "/api/v1/records/{id}", server.handleDeleteRecord))

		// Extraction
		r.Get("/records/{id}/extract", metrics.InstrumentHandler("GET", "/api/v1/records/{id}/extract", server.handleExtract))
		r.Get("/search", metrics.InstrumentHandler("GET", "/api/v1/search", server.handleSearch))

		// Diagnostics
		r.Get("/stats", metrics.InstrumentHandler("GET", "/api/v1/stats", server.handleStats))
	})

	return r
}
