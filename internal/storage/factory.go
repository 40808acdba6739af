// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zrfleet/depotsim/internal/config"
	"github.com/zrfleet/depotsim/internal/database"
	"github.com/zrfleet/depotsim/internal/storage/gormdb"
	"github.com/zrfleet/depotsim/internal/storage/memory"
)

// NewBackend creates a storage backend based on configuration. sqlitePath
// is where a local-fallback database gets dumped when Postgres is down;
// the memory backend ignores it.
func NewBackend(cfg config.StorageConfig, sqlitePath string, logger zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.New(cfg.Memory), nil
	case "gorm", "postgres", "sqlite":
		manager := database.NewManager(logger)
		manager.SqliteFilePath = sqlitePath
		return gormdb.New(manager, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
