package extension

import (
	"time"

	"github.com/xraph/n1c"
	"github.com/xraph/n1c/plugin"
	"github.com/xraph/n1c/store"
)

// Option configures the n1c Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a n1c.Option through to the underlying engine.
func WithLedgerOption(opt n1c.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, n1c.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents store migrations on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithDisableRestore prevents loading state from the store on start.
func WithDisableRestore() Option {
	return func(e *Extension) { e.config.DisableRestore = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithMaxAmount caps a single transfer, in major units.
func WithMaxAmount(amount string) Option {
	return func(e *Extension) { e.config.MaxAmount = amount }
}

// WithDataFile keeps ledger state in a file store at path.
func WithDataFile(path string) Option {
	return func(e *Extension) { e.config.DataFile = path }
}

// WithIssuerKeyFile sets the PEM file holding the issuer key.
func WithIssuerKeyFile(path string) Option {
	return func(e *Extension) { e.config.IssuerKeyFile = path }
}

// WithPersistBatchSize sets the number of journaled changes that triggers a flush.
func WithPersistBatchSize(size int) Option {
	return func(e *Extension) { e.config.PersistBatchSize = size }
}

// WithPersistFlushInterval sets how frequently pending changes are flushed.
func WithPersistFlushInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.PersistFlushInterval = d }
}
