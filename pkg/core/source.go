package core

import (
	"context"
)

// Source represents an external producer of figure records: a shop API, a
// community database, a dump file. Sources are self-contained units that
// know how to fetch their data, validate their own configuration, and
// stream figures for ingestion.
//
// Type vs Name: Type is the source category (e.g. "hlj"), Name is the
// configured instance (e.g. "hlj_preorders"). Two instances of the same
// type may run with different configurations for different users.
//
// Registration pattern:
//
//	func init() {
//		RegisterSourcePrototype("hlj", &Source{})
//	}
type Source interface {
	// Type returns the source type identifier, a constant string used for
	// factory registration and configuration matching.
	Type() string

	// Name returns the configured instance name for this source.
	Name() string

	// OwnerID returns the id of the user whose collection this source
	// feeds. Every figure the source emits must carry this owner.
	OwnerID() string

	// FetchFigures retrieves data from the source and streams it as
	// figures. Implementations must respect context cancellation and send
	// figures as soon as they are produced; the caller owns the channel
	// and closes it after FetchFigures returns.
	FetchFigures(ctx context.Context, figureCh chan<- Figure) error

	// ConfigType returns a pointer to an empty configuration struct of the
	// type SetConfig expects.
	ConfigType() interface{}

	// SetConfig validates and applies a configuration. Called during
	// initialization and on configuration reload.
	SetConfig(config interface{}) error

	// GetConfig returns the current configuration.
	GetConfig() interface{}

	// Close releases connections and other resources held by the source.
	Close() error

	// Factory creates a fully initialized instance of this source type.
	// config may be nil for defaults.
	Factory(instanceName string, config interface{}) (Source, error)
}
