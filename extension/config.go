package extension

import "time"

// Config holds the n1c extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.n1c" or "n1c" keys).
type Config struct {
	// DisableMigrate prevents store migrations on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableRestore prevents loading ledger state from the store on start.
	DisableRestore bool `json:"disable_restore" mapstructure:"disable_restore" yaml:"disable_restore"`

	// Currency is the currency balances are kept in (default: "n1c").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// MaxAmount caps a single transfer, in major units (default: "1000000").
	MaxAmount string `json:"max_amount" mapstructure:"max_amount" yaml:"max_amount"`

	// DataFile is the path of a file store used when no store is provided
	// programmatically. When empty, state is kept in memory only.
	DataFile string `json:"data_file" mapstructure:"data_file" yaml:"data_file"`

	// IssuerKeyFile is a PEM-encoded Ed25519 private key. When set, the
	// ledger opens an issuer account controlled by it.
	IssuerKeyFile string `json:"issuer_key_file" mapstructure:"issuer_key_file" yaml:"issuer_key_file"`

	// PersistBatchSize is the number of journaled changes that triggers an
	// early flush to the store (default: 100).
	PersistBatchSize int `json:"persist_batch_size" mapstructure:"persist_batch_size" yaml:"persist_batch_size"`

	// PersistFlushInterval is how frequently pending changes are flushed
	// even if the batch size has not been reached (default: 5s).
	PersistFlushInterval time.Duration `json:"persist_flush_interval" mapstructure:"persist_flush_interval" yaml:"persist_flush_interval"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Currency:             "n1c",
		MaxAmount:            "1000000",
		PersistBatchSize:     100,
		PersistFlushInterval: 5 * time.Second,
	}
}
