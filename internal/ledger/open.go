package ledger

import (
	"context"
	"fmt"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
)

// Backend names accepted by OpenStore.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// StoreConfig selects and locates a Store.
type StoreConfig struct {
	Backend string
	// Path is the SQLite database file.
	Path string
	// DSN is the PostgreSQL connection string.
	DSN string
}

// OpenStore opens the Store described by cfg. An empty Backend means sqlite.
func OpenStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "", BackendSQLite:
		return OpenSQLite(cfg.Path, 0)
	case BackendPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", kerrors.ErrUnknownBackend, cfg.Backend)
	}
}
