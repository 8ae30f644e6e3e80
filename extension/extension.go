// Package extension provides the Forge extension adapter for n1c.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.n1c" or "n1c" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/n1c"
	"github.com/xraph/n1c/signing"
	"github.com/xraph/n1c/store"
	"github.com/xraph/n1c/store/file"
	"github.com/xraph/n1c/store/memory"
	"github.com/xraph/n1c/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "n1c"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Single-authority currency ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the n1c ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *n1c.Ledger
	store      store.Store
	ledgerOpts []n1c.Option
}

// New creates a new n1c Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Engine() *n1c.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := e.openStore()
		if err != nil {
			return err
		}
		e.store = s
	}

	opts, err := e.buildLedgerOpts()
	if err != nil {
		return err
	}

	eng, err := n1c.New(e.store, opts...)
	if err != nil {
		return err
	}
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*n1c.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension]. The ledger is restored from the
// store before its flush worker starts, so the first flush never races the
// loaded state.
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("n1c: extension not initialized")
	}

	if !e.config.DisableRestore {
		// Restore reads tables the ledger would otherwise only create on Start.
		if !e.config.DisableMigrate {
			if err := e.store.Migrate(ctx); err != nil {
				return fmt.Errorf("n1c: migrate: %w", err)
			}
		}
		if err := e.engine.Restore(ctx); err != nil {
			return fmt.Errorf("n1c: restore: %w", err)
		}
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil && !errors.Is(err, n1c.ErrNotStarted) {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension]. A ledger whose state no longer
// replays from its history is reported unhealthy.
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("n1c: store not initialized")
	}
	if err := e.store.Ping(ctx); err != nil {
		return err
	}
	if e.engine != nil && !e.engine.VerifyIntegrity(ctx) {
		return fmt.Errorf("n1c: %w", types.ErrIntegrityViolation)
	}
	return nil
}

// openStore picks the store from the resolved config: a file store when a
// data file is configured, memory otherwise.
func (e *Extension) openStore() (store.Store, error) {
	if e.config.DataFile == "" {
		return memory.New(), nil
	}
	s, err := file.Open(e.config.DataFile)
	if err != nil {
		return nil, fmt.Errorf("n1c: open data file: %w", err)
	}
	return s, nil
}

// buildLedgerOpts constructs n1c.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() ([]n1c.Option, error) {
	opts := make([]n1c.Option, 0, len(e.ledgerOpts)+5)

	opts = append(opts,
		n1c.WithCurrency(e.config.Currency),
		n1c.WithPersistConfig(e.config.PersistBatchSize, e.config.PersistFlushInterval),
	)

	maxAmount, err := types.ParseMoney(e.config.MaxAmount, e.config.Currency)
	if err != nil {
		return nil, fmt.Errorf("n1c: max_amount: %w", err)
	}
	opts = append(opts, n1c.WithMaxAmount(maxAmount))

	if e.config.IssuerKeyFile != "" {
		data, err := os.ReadFile(e.config.IssuerKeyFile)
		if err != nil {
			return nil, fmt.Errorf("n1c: read issuer key: %w", err)
		}
		priv, err := signing.ParsePrivateKeyPEM(data)
		if err != nil {
			return nil, fmt.Errorf("n1c: issuer key: %w", err)
		}
		opts = append(opts, n1c.WithIssuer(priv))
	}

	if e.config.DisableMigrate {
		opts = append(opts, n1c.WithoutMigrate())
	}

	// Pass-through ledger options come last so they win.
	opts = append(opts, e.ledgerOpts...)

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("n1c: configuration is required but not found in config files; " +
				"ensure 'extensions.n1c' or 'n1c' key exists in your config")
		}

		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("n1c: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("disable_restore", e.config.DisableRestore),
		forge.F("currency", e.config.Currency),
		forge.F("max_amount", e.config.MaxAmount),
		forge.F("data_file", e.config.DataFile),
		forge.F("persist_batch_size", e.config.PersistBatchSize),
		forge.F("persist_flush_interval", e.config.PersistFlushInterval),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.n1c", "n1c"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("n1c: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("n1c: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.MaxAmount == "" {
		cfg.MaxAmount = defaults.MaxAmount
	}
	if cfg.PersistBatchSize == 0 {
		cfg.PersistBatchSize = defaults.PersistBatchSize
	}
	if cfg.PersistFlushInterval == 0 {
		cfg.PersistFlushInterval = defaults.PersistFlushInterval
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableRestore {
		yamlConfig.DisableRestore = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Currency == "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}
	if yamlConfig.MaxAmount == "" {
		yamlConfig.MaxAmount = programmaticConfig.MaxAmount
	}
	if yamlConfig.DataFile == "" {
		yamlConfig.DataFile = programmaticConfig.DataFile
	}
	if yamlConfig.IssuerKeyFile == "" {
		yamlConfig.IssuerKeyFile = programmaticConfig.IssuerKeyFile
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.PersistBatchSize == 0 {
		yamlConfig.PersistBatchSize = programmaticConfig.PersistBatchSize
	}
	if yamlConfig.PersistFlushInterval == 0 {
		yamlConfig.PersistFlushInterval = programmaticConfig.PersistFlushInterval
	}

	return e.mergeWithDefaults(yamlConfig)
}
