package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vitrina/vitrina/pkg/auth"
	"github.com/vitrina/vitrina/pkg/core"
	"github.com/vitrina/vitrina/pkg/log"
	"github.com/vitrina/vitrina/pkg/realtime"
	"github.com/vitrina/vitrina/pkg/search"
	"github.com/vitrina/vitrina/pkg/storage"
)

type Server struct {
	registry  *core.Registry
	store     *storage.Store
	engine    *search.Engine
	hub       *realtime.Hub
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *log.Logger
}

func NewServer(registry *core.Registry, store *storage.Store, engine *search.Engine, jwtSecret []byte, tokenTTL time.Duration) *Server {
	return &Server{
		registry:  registry,
		store:     store,
		engine:    engine,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    log.For("api"),
	}
}

// SetFirehoseHub enables the WebSocket firehose endpoint. Without a hub the
// endpoint responds 503.
func (s *Server) SetFirehoseHub(hub *realtime.Hub) {
	s.hub = hub
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

// requireAuth wraps a handler with bearer-token authentication. The
// authenticated user id ends up in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	mw := auth.Middleware(s.jwtSecret, func(w http.ResponseWriter, status int, msg string) {
		s.writeError(w, status, "Unauthorized", msg)
	})
	wrapped := mw(next)
	return wrapped.ServeHTTP
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
