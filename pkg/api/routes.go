package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Public routes
	mux.HandleFunc("POST /api/auth/register", s.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", s.HandleLogin)
	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.HandleFunc("GET /{$}", s.HandleIndex)

	// Authenticated routes
	mux.HandleFunc("GET /api/figures", s.requireAuth(s.HandleListFigures))
	mux.HandleFunc("POST /api/figures", s.requireAuth(s.HandleCreateFigure))
	mux.HandleFunc("GET /api/figures/{id}", s.requireAuth(s.HandleGetFigure))
	mux.HandleFunc("PUT /api/figures/{id}", s.requireAuth(s.HandleUpdateFigure))
	mux.HandleFunc("DELETE /api/figures/{id}", s.requireAuth(s.HandleDeleteFigure))
	mux.HandleFunc("GET /api/search/wordwheel", s.requireAuth(s.HandleWordWheel))
	mux.HandleFunc("GET /api/search/partial", s.requireAuth(s.HandlePartial))
	mux.HandleFunc("GET /api/sources", s.requireAuth(s.HandleListSources))
	mux.HandleFunc("GET /api/stats", s.requireAuth(s.HandleStats))
	mux.HandleFunc("GET /api/firehose/ws", s.HandleFirehoseWS)
}
