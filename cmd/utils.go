package cmd

import (
	"context"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/vitrina/vitrina/pkg/config"
	"github.com/vitrina/vitrina/pkg/core"
	"github.com/vitrina/vitrina/pkg/search"
	"github.com/vitrina/vitrina/pkg/storage"
)

// ownerSetter is implemented by every source config so the owner from the
// [sources.X] block reaches the source without each config re-declaring it.
type ownerSetter interface {
	SetOwner(owner string)
}

// createSourcesFromConfig instantiates and configures every source listed in
// the config file.
func createSourcesFromConfig(registry *core.Registry, cfg *config.Config) error {
	for name := range cfg.Sources {
		info, err := cfg.GetSourceConfig(name)
		if err != nil {
			return fmt.Errorf("getting config for source %s: %w", name, err)
		}

		if err := registry.CreateSource(name, info.Type, nil); err != nil {
			return fmt.Errorf("creating source %s: %w", name, err)
		}

		src, err := registry.GetSource(name)
		if err != nil {
			return fmt.Errorf("source %s not found after creation: %w", name, err)
		}

		srcConfig, err := convertRawConfigToType(src, info.Config)
		if err != nil {
			return fmt.Errorf("converting config for source %s: %w", name, err)
		}

		if setter, ok := srcConfig.(ownerSetter); ok && info.Owner != "" {
			setter.SetOwner(info.Owner)
		}

		if err := src.SetConfig(srcConfig); err != nil {
			return fmt.Errorf("setting config for source %s: %w", name, err)
		}
	}

	return nil
}

// convertRawConfigToType converts the raw TOML config blob to the source's
// expected config type by round-tripping through TOML.
func convertRawConfigToType(src core.Source, rawConfig interface{}) (interface{}, error) {
	configType := src.ConfigType()

	if rawConfig == nil {
		return configType, nil
	}

	configData, err := toml.Marshal(rawConfig)
	if err != nil {
		return nil, fmt.Errorf("marshaling config data: %w", err)
	}

	if err := toml.Unmarshal(configData, configType); err != nil {
		return nil, fmt.Errorf("unmarshaling source config: %w", err)
	}

	return configType, nil
}

// openStore opens the catalog database under the configured storage dir.
func openStore(cfg *config.Config) (*storage.Store, error) {
	store, err := storage.NewStore(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return store, nil
}

// buildEngine constructs a search engine over the store and warms the index
// with every owner's figures so searches are served from memory immediately.
func buildEngine(ctx context.Context, store *storage.Store) (*search.Engine, error) {
	engine := search.NewEngine(store, search.NewIndex())

	owners, err := store.ListOwnerIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing owners: %w", err)
	}
	for _, owner := range owners {
		if err := engine.RebuildOwner(ctx, owner); err != nil {
			return nil, fmt.Errorf("building index for owner %s: %w", owner, err)
		}
	}

	return engine, nil
}

// resolveOwnerID turns a --user value (username or raw id) into a user id.
func resolveOwnerID(ctx context.Context, store *storage.Store, user string) (string, error) {
	if user == "" {
		return "", fmt.Errorf("a user is required (--user)")
	}
	if u, err := store.GetUserByUsername(ctx, user); err == nil {
		return u.ID, nil
	}
	if u, err := store.GetUser(ctx, user); err == nil {
		return u.ID, nil
	}
	return "", fmt.Errorf("no user named %q", user)
}
