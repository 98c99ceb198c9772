package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/kaitiaki/internal/audit"
	"github.com/PolarWolf314/kaitiaki/internal/configs"
	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/ledger"
	"github.com/PolarWolf314/kaitiaki/internal/utils"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	// Dir is the project root. Defaults to the working directory.
	Dir string

	// Name is the ledger name. Defaults to the directory name.
	Name string

	// Backend selects the ledger store. Defaults to sqlite.
	Backend string

	// DSN is the PostgreSQL connection string for the postgres backend.
	DSN string

	// Difficulty overrides the default mining difficulty when non-nil.
	Difficulty *int
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	ProjectPath string
	ConfigPath  string
	LedgerUUID  string
	LedgerName  string
	Backend     string

	// LedgerPath is the SQLite file, empty for other backends.
	LedgerPath string
}

// Init creates the .kaitiaki directory with a config file and an empty ledger.
//
// Returns ErrProjectAlreadyInitialized if .kaitiaki already exists in Dir.
// Returns ErrInvalidProjectConfig or ErrUnknownBackend for bad options.
// Returns ErrStorage if the ledger store cannot be created.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving project directory: %w", err)
	}

	projectDir := filepath.Join(dir, utils.ProjectDirName)
	if _, err := os.Stat(projectDir); err == nil {
		return nil, kerrors.ErrProjectAlreadyInitialized
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("checking %s: %w", projectDir, err)
	}

	config := configs.DefaultProjectConfig()
	config.Ledger.UUID = configs.GenerateLedgerUUID()
	config.Ledger.Name = opts.Name
	if config.Ledger.Name == "" {
		config.Ledger.Name = filepath.Base(dir)
	}
	if opts.Backend != "" {
		config.Ledger.Backend = opts.Backend
	}
	config.Ledger.DSN = opts.DSN
	if opts.Difficulty != nil {
		config.Ledger.Difficulty = *opts.Difficulty
	}

	// The DSN may be supplied only through the environment, so validate
	// the effective config but save the file without it.
	effective := *config
	if err := effective.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := effective.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(projectDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", projectDir, err)
	}

	settings := configs.NewProjectSettings(dir)
	if err := configs.SaveProjectConfigTo(settings.ConfigPath, config); err != nil {
		_ = os.RemoveAll(projectDir)
		return nil, err
	}

	storeConfig := effective.StoreConfig(dir)
	store, err := ledger.OpenStore(ctx, storeConfig)
	if err != nil {
		_ = os.RemoveAll(projectDir)
		return nil, fmt.Errorf("creating ledger: %w", err)
	}
	if err := store.Close(); err != nil {
		return nil, err
	}

	configs.ProjectKaitiakiSettings = settings

	entry := audit.NewEntry("init", config.Ledger.UUID)
	entry.LedgerName = config.Ledger.Name
	audit.Log(entry)

	result := &InitResult{
		ProjectPath: dir,
		ConfigPath:  settings.ConfigPath,
		LedgerUUID:  config.Ledger.UUID,
		LedgerName:  config.Ledger.Name,
		Backend:     config.Ledger.Backend,
	}
	if config.Ledger.Backend == ledger.BackendSQLite {
		result.LedgerPath = storeConfig.Path
	}
	return result, nil
}
