package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/PolarWolf314/kaitiaki/internal/configs"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/ledger"
)

// Project is an opened Kaitiaki project: its configuration and ledger.
type Project struct {
	Settings *configs.ProjectSettings
	Config   *configs.ProjectConfig
	Ledger   *ledger.Ledger

	store ledger.Store
}

// OpenProject locates the project from the working directory, loads its
// configuration and opens the configured ledger store.
//
// Returns ErrProjectNotInitialized if no .kaitiaki directory is found.
// Returns ErrInvalidProjectConfig or ErrUnknownBackend for a bad config.
// Returns ErrStorage if the ledger store cannot be opened.
func OpenProject(ctx context.Context) (*Project, error) {
	if err := configs.InitProjectSettings(); err != nil {
		return nil, fmt.Errorf("initializing project settings: %w", err)
	}

	settings := configs.ProjectKaitiakiSettings
	if settings.ProjectPath == "" {
		return nil, kerrors.ErrProjectNotInitialized
	}

	config, err := configs.LoadProjectConfig()
	if err != nil {
		if errors.Is(err, kerrors.ErrProjectNotInitialized) {
			return nil, err
		}
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	store, err := ledger.OpenStore(ctx, config.StoreConfig(settings.ProjectPath))
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	return &Project{
		Settings: settings,
		Config:   config,
		Ledger:   ledger.New(store, config.LedgerOptions()),
		store:    store,
	}, nil
}

// LedgerUUID returns the ledger identity recorded in audit entries.
func (p *Project) LedgerUUID() string {
	return p.Config.Ledger.UUID
}

// Close releases the ledger store.
func (p *Project) Close() error {
	return p.store.Close()
}
