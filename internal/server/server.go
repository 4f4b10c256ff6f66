// internal/server/server.go

// Package server exposes the validation service over HTTP: job trigger and
// poll, the single-member discount check, single-use document downloads,
// and the health and metrics endpoints.
package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"affiliation-validator/internal/common/logger"
	"affiliation-validator/internal/downloads"
	"affiliation-validator/internal/orchestrator"
	"affiliation-validator/internal/store"
)

// Pinger is the readiness slice of a backing client.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	orch      *orchestrator.Orchestrator
	resolver  orchestrator.Resolver
	store     store.Store
	downloads *downloads.Store
	postgres  Pinger
	redis     Pinger
	logger    logger.Logger
}

func New(
	orch *orchestrator.Orchestrator,
	res orchestrator.Resolver,
	st store.Store,
	dl *downloads.Store,
	postgres Pinger,
	redis Pinger,
	log logger.Logger,
) *Server {
	return &Server{
		orch:      orch,
		resolver:  res,
		store:     st,
		downloads: dl,
		postgres:  postgres,
		redis:     redis,
		logger:    log.WithFields(map[string]interface{}{"component": "server"}),
	}
}

// Routes builds the service mux. Method routing and path parameters use the
// standard mux patterns.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /validate-and-generate/{orgToken}", s.handleTrigger)
	mux.HandleFunc("GET /job-status/{orgToken}", s.handleJobStatus)
	mux.HandleFunc("POST /discount-check", s.handleDiscountCheck)
	mux.HandleFunc("GET /download/{token}", s.handleDownload)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}
