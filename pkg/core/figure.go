// Package core defines the domain types shared by every vitrina component:
// the Figure record, the User account that owns figures, and the Source
// interface implemented by scraping producers.
package core

import (
	"errors"
	"strings"
	"time"
)

// Validation errors returned by Figure.Validate.
var (
	ErrMissingManufacturer = errors.New("figure manufacturer is required")
	ErrMissingName         = errors.New("figure name is required")
	ErrMissingOwner        = errors.New("figure owner is required")
)

// Figure is a single collectible item owned by exactly one user.
//
// ID is assigned by the store on creation and never changes. OwnerID is
// immutable after creation; every query against the catalog is scoped by
// it. Manufacturer and Name are required and feed the search index; the
// remaining attributes are free text and default to the empty string.
type Figure struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Manufacturer string    `json:"manufacturer"`
	Name         string    `json:"name"`
	Scale        string    `json:"scale,omitempty"`
	SourceLink   string    `json:"source_link,omitempty"`
	Location     string    `json:"location,omitempty"`
	BoxNumber    string    `json:"box_number,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks the invariants every persisted figure must hold.
func (f *Figure) Validate() error {
	if strings.TrimSpace(f.Manufacturer) == "" {
		return ErrMissingManufacturer
	}
	if strings.TrimSpace(f.Name) == "" {
		return ErrMissingName
	}
	if f.OwnerID == "" {
		return ErrMissingOwner
	}
	return nil
}

// Summary returns a one-line description used by the CLI and log output.
func (f *Figure) Summary() string {
	var b strings.Builder
	b.WriteString(f.Name)
	if f.Manufacturer != "" {
		b.WriteString(" (")
		b.WriteString(f.Manufacturer)
		b.WriteString(")")
	}
	if f.Scale != "" {
		b.WriteString(" ")
		b.WriteString(f.Scale)
	}
	return b.String()
}
