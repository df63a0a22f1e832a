// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gridbots/programmable/internal/config"
	"github.com/gridbots/programmable/internal/database"
	"github.com/gridbots/programmable/internal/storage/gormstore"
	"github.com/gridbots/programmable/internal/storage/memory"
	"github.com/gridbots/programmable/internal/storage/redisstore"
)

// NewBackend creates a storage backend based on configuration. The caller
// runs Init before use.
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres", "sqlite":
		mgr := database.NewManager(log)
		if err := mgr.Connect(cfg); err != nil {
			return nil, fmt.Errorf("failed to connect %s backend: %w", cfg.Type, err)
		}
		return gormstore.New(mgr), nil
	case "redis":
		return redisstore.New(cfg.Redis), nil
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
