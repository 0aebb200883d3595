package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"techpulse/internal/storage"
)

// Server exposes the operational HTTP surface for a pipeline run:
// Prometheus metrics and a health endpoint. It serves only for the
// duration of the run and is optional (no METRICS_ADDR, no server).
type Server struct {
	addr       string
	router     http.Handler
	httpServer *http.Server
	warehouse  *storage.Warehouse
	redisStore *storage.RedisStore // optional, may be nil
	logger     *zap.Logger
}

func NewServer(addr string, w *storage.Warehouse, rs *storage.RedisStore, l *zap.Logger) *Server {
	s := &Server{
		addr:       addr,
		warehouse:  w,
		redisStore: rs,
		logger:     l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
