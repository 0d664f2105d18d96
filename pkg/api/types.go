package api

import (
	"time"

	"github.com/vitrina/vitrina/pkg/core"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type FigureRequest struct {
	Manufacturer string `json:"manufacturer"`
	Name         string `json:"name"`
	Scale        string `json:"scale,omitempty"`
	SourceLink   string `json:"source_link,omitempty"`
	Location     string `json:"location,omitempty"`
	BoxNumber    string `json:"box_number,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
}

type ListFiguresResponse struct {
	Figures []*core.Figure `json:"figures"`
	Count   int            `json:"count"`
}

type SearchResponse struct {
	Query   string         `json:"query"`
	Figures []*core.Figure `json:"figures"`
	Count   int            `json:"count"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

type ListSourcesResponse struct {
	Sources []SourceInfo `json:"sources"`
	Count   int          `json:"count"`
}

type SourceInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
