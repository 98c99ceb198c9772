package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	"github.com/PolarWolf314/kaitiaki/internal/ledger"
	"github.com/PolarWolf314/kaitiaki/internal/miner"
	"github.com/PolarWolf314/kaitiaki/internal/utils"

	"github.com/google/uuid"
)

// Environment variables that override the config file.
const (
	EnvLedgerDSN  = "KAITIAKI_LEDGER_DSN"
	EnvDifficulty = "KAITIAKI_DIFFICULTY"
)

// DefaultLedgerFile is the SQLite file name inside the project directory.
const DefaultLedgerFile = "ledger.db"

type ProjectConfig struct {
	Ledger    LedgerConfig    `toml:"ledger"`
	Signature SignatureConfig `toml:"signature"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

type LedgerConfig struct {
	UUID          string   `toml:"uuid"`
	Name          string   `toml:"name"`
	Backend       string   `toml:"backend"`
	Path          string   `toml:"path"`
	DSN           string   `toml:"dsn"`
	Difficulty    int      `toml:"difficulty"`
	MaxAttempts   int64    `toml:"max_attempts"`
	MiningTimeout Duration `toml:"mining_timeout"`
	AppendRetries int      `toml:"append_retries"`
}

type SignatureConfig struct {
	ConstantTime bool `toml:"constant_time"`
}

type MetricsConfig struct {
	Textfile string `toml:"textfile"`
}

// Duration is a time.Duration written as a Go duration string such as "5m".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// DefaultProjectConfig returns a config with every default filled in and no identity.
func DefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Ledger: LedgerConfig{
			Backend:       ledger.BackendSQLite,
			Path:          filepath.Join(utils.ProjectDirName, DefaultLedgerFile),
			Difficulty:    ledger.DefaultDifficulty,
			MaxAttempts:   int64(miner.DefaultMaxAttempts),
			MiningTimeout: Duration{ledger.DefaultMiningTimeout},
			AppendRetries: ledger.DefaultAppendRetries,
		},
	}
}

// GenerateLedgerUUID generates a new UUID for a ledger.
func GenerateLedgerUUID() string {
	return uuid.New().String()
}

// LoadProjectConfig loads the project configuration, applies environment
// overrides and validates the result.
// Note: Caller should ensure InitProjectSettings is called before calling this function.
func LoadProjectConfig() (*ProjectConfig, error) {
	return LoadProjectConfigFrom(ProjectKaitiakiSettings.ConfigPath)
}

// LoadProjectConfigFrom is LoadProjectConfig for an explicit file.
func LoadProjectConfigFrom(configPath string) (*ProjectConfig, error) {
	if configPath == "" {
		return nil, kerrors.ErrProjectNotInitialized
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, kerrors.ErrProjectNotInitialized
	}

	config := DefaultProjectConfig()
	if err := LoadTOML(configPath, config); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidProjectConfig, err)
	}
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveProjectConfig saves the project configuration to the config file.
func SaveProjectConfig(config *ProjectConfig) error {
	return SaveProjectConfigTo(ProjectKaitiakiSettings.ConfigPath, config)
}

// SaveProjectConfigTo is SaveProjectConfig for an explicit file.
func SaveProjectConfigTo(configPath string, config *ProjectConfig) error {
	if err := SaveTOML(configPath, config); err != nil {
		return fmt.Errorf("failed to save project config: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values from the environment.
func (c *ProjectConfig) ApplyEnv() error {
	if dsn := os.Getenv(EnvLedgerDSN); dsn != "" {
		c.Ledger.DSN = dsn
	}
	if raw := os.Getenv(EnvDifficulty); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", kerrors.ErrInvalidProjectConfig, EnvDifficulty, raw)
		}
		c.Ledger.Difficulty = d
	}
	return nil
}

// Validate reports settings no ledger can run with.
func (c *ProjectConfig) Validate() error {
	switch c.Ledger.Backend {
	case ledger.BackendSQLite:
		if c.Ledger.Path == "" {
			return fmt.Errorf("%w: ledger.path is required for the sqlite backend", kerrors.ErrInvalidProjectConfig)
		}
	case ledger.BackendPostgres:
		if c.Ledger.DSN == "" {
			return fmt.Errorf("%w: ledger.dsn or %s is required for the postgres backend", kerrors.ErrInvalidProjectConfig, EnvLedgerDSN)
		}
	case ledger.BackendMemory:
	default:
		return fmt.Errorf("%w: %q", kerrors.ErrUnknownBackend, c.Ledger.Backend)
	}

	if err := miner.ValidateDifficulty(c.Ledger.Difficulty); err != nil {
		return fmt.Errorf("%w: ledger.difficulty: %v", kerrors.ErrInvalidProjectConfig, err)
	}
	if c.Ledger.MaxAttempts <= 0 {
		return fmt.Errorf("%w: ledger.max_attempts must be positive", kerrors.ErrInvalidProjectConfig)
	}
	if c.Ledger.MiningTimeout.Duration < 0 {
		return fmt.Errorf("%w: ledger.mining_timeout must not be negative", kerrors.ErrInvalidProjectConfig)
	}
	if c.Ledger.AppendRetries < 0 {
		return fmt.Errorf("%w: ledger.append_retries must not be negative", kerrors.ErrInvalidProjectConfig)
	}
	return nil
}

// StoreConfig locates the ledger store. A relative sqlite path is resolved
// against projectPath.
func (c *ProjectConfig) StoreConfig(projectPath string) ledger.StoreConfig {
	path := c.Ledger.Path
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(projectPath, path)
	}
	return ledger.StoreConfig{
		Backend: c.Ledger.Backend,
		Path:    path,
		DSN:     c.Ledger.DSN,
	}
}

// LedgerOptions returns the ledger service options.
func (c *ProjectConfig) LedgerOptions() ledger.Options {
	return ledger.Options{
		Difficulty:    c.Ledger.Difficulty,
		MaxAttempts:   uint64(c.Ledger.MaxAttempts),
		MiningTimeout: c.Ledger.MiningTimeout.Duration,
		AppendRetries: c.Ledger.AppendRetries,
	}
}
