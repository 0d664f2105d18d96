package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/vitrina/vitrina/pkg/auth"
	"github.com/vitrina/vitrina/pkg/core"
	"github.com/vitrina/vitrina/pkg/search"
	"github.com/vitrina/vitrina/pkg/storage"
	"github.com/vitrina/vitrina/pkg/version"
)

func (s *Server) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request", "Request body must be JSON")
		return
	}
	if req.Username == "" || req.Password == "" {
		s.writeError(w, http.StatusBadRequest, "Invalid request", "Username and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Registration failed", err.Error())
		return
	}

	user := &core.User{Username: req.Username, PasswordHash: hash}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			s.writeError(w, http.StatusConflict, "Registration failed", "Username is already taken")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Registration failed", err.Error())
		return
	}

	s.issueToken(w, user.ID)
}

func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request", "Request body must be JSON")
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusUnauthorized, "Login failed", "Invalid username or password")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Login failed", err.Error())
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.writeError(w, http.StatusUnauthorized, "Login failed", "Invalid username or password")
		return
	}

	s.issueToken(w, user.ID)
}

func (s *Server) issueToken(w http.ResponseWriter, userID string) {
	token, err := auth.GenerateToken(userID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Token generation failed", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, TokenResponse{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(s.tokenTTL),
	})
}

func (s *Server) HandleListFigures(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserIDFromContext(r.Context())

	var (
		figures []*core.Figure
		err     error
	)
	if prefix := r.URL.Query().Get("prefix"); prefix != "" {
		field := r.URL.Query().Get("field")
		if field == "" {
			field = storage.FieldName
		}
		figures, err = s.store.FindByOwnerPrefix(r.Context(), ownerID, field, prefix)
	} else {
		figures, err = s.store.FindAllByOwner(r.Context(), ownerID)
	}
	if err != nil {
		if errors.Is(err, storage.ErrUnknownField) {
			s.writeError(w, http.StatusBadRequest, "Invalid field", err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Failed to list figures", err.Error())
		return
	}

	if figures == nil {
		figures = []*core.Figure{}
	}
	s.writeJSON(w, http.StatusOK, ListFiguresResponse{
		Figures: figures,
		Count:   len(figures),
	})
}

func (s *Server) HandleCreateFigure(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserIDFromContext(r.Context())

	var req FigureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request", "Request body must be JSON")
		return
	}

	figure := figureFromRequest(req, ownerID)
	if err := s.store.CreateFigure(r.Context(), figure); err != nil {
		if isValidationError(err) {
			s.writeError(w, http.StatusBadRequest, "Invalid figure", err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Failed to create figure", err.Error())
		return
	}

	s.engine.Index().Upsert(figure)
	s.writeJSON(w, http.StatusCreated, figure)
}

func (s *Server) HandleGetFigure(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserIDFromContext(r.Context())

	figure, err := s.store.GetFigure(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Figure not found", "No such figure")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Failed to get figure", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, figure)
}

func (s *Server) HandleUpdateFigure(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserIDFromContext(r.Context())

	var req FigureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request", "Request body must be JSON")
		return
	}

	figure := figureFromRequest(req, ownerID)
	figure.ID = r.PathValue("id")
	if err := s.store.UpdateFigure(r.Context(), figure); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "Figure not found", "No such figure")
		case isValidationError(err):
			s.writeError(w, http.StatusBadRequest, "Invalid figure", err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, "Failed to update figure", err.Error())
		}
		return
	}

	s.engine.Index().Upsert(figure)

	// Re-read so the response carries the stored timestamps.
	updated, err := s.store.GetFigure(r.Context(), ownerID, figure.ID)
	if err != nil {
		updated = figure
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) HandleDeleteFigure(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	if err := s.store.DeleteFigure(r.Context(), ownerID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Figure not found", "No such figure")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Failed to delete figure", err.Error())
		return
	}

	s.engine.Index().Remove(ownerID, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandleWordWheel(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserIDFromContext(r.Context())
	params := r.URL.Query()

	query, err := search.Validate(ownerID, params.Get("q"), params.Get("limit"), "", false)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid query", err.Error())
		return
	}

	figures, err := s.engine.WordWheel(r.Context(), query)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Search failed", err.Error())
		return
	}

	s.writeSearchResults(w, query, figures)
}

func (s *Server) HandlePartial(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserIDFromContext(r.Context())
	params := r.URL.Query()

	query, err := search.Validate(ownerID, params.Get("q"), params.Get("limit"), params.Get("offset"), true)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid query", err.Error())
		return
	}

	figures, err := s.engine.Partial(r.Context(), query)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Search failed", err.Error())
		return
	}

	s.writeSearchResults(w, query, figures)
}

func (s *Server) writeSearchResults(w http.ResponseWriter, query search.Query, figures []*core.Figure) {
	if figures == nil {
		figures = []*core.Figure{}
	}
	s.writeJSON(w, http.StatusOK, SearchResponse{
		Query:   query.Text,
		Figures: figures,
		Count:   len(figures),
		Limit:   query.Limit,
		Offset:  query.Offset,
	})
}

func (s *Server) HandleListSources(w http.ResponseWriter, r *http.Request) {
	names := s.registry.ListSources()

	infos := make([]SourceInfo, 0, len(names))
	for _, name := range names {
		src, err := s.registry.GetSource(name)
		if err != nil {
			continue
		}
		infos = append(infos, SourceInfo{Name: name, Type: src.Type()})
	}

	s.writeJSON(w, http.StatusOK, ListSourcesResponse{
		Sources: infos,
		Count:   len(infos),
	})
}

func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to get stats", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}

	s.writeJSON(w, http.StatusOK, health)
}

func figureFromRequest(req FigureRequest, ownerID string) *core.Figure {
	return &core.Figure{
		OwnerID:      ownerID,
		Manufacturer: req.Manufacturer,
		Name:         req.Name,
		Scale:        req.Scale,
		SourceLink:   req.SourceLink,
		Location:     req.Location,
		BoxNumber:    req.BoxNumber,
		ImageURL:     req.ImageURL,
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrMissingManufacturer) ||
		errors.Is(err, core.ErrMissingName) ||
		errors.Is(err, core.ErrMissingOwner)
}
