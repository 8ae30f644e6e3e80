package n1c

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/plugin"
	"github.com/xraph/n1c/signing"
	"github.com/xraph/n1c/store"
	"github.com/xraph/n1c/store/memory"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

// Default configuration.
const (
	DefaultMaxAmount     = "1000000"
	DefaultBatchSize     = 100
	DefaultFlushInterval = 5 * time.Second
	defaultJournalBuffer = 10000
)

// Ledger is the consistency and authorization engine. All account and
// transaction state sits behind one RWMutex: commits, recomputes and account
// openings take it exclusively, integrity passes and snapshots hold the
// shared side for their whole run.
type Ledger struct {
	mu    sync.RWMutex
	state *state

	anchors  *anchor.Registry
	auth     *transaction.Authorizer
	keyring  *signing.Keyring
	resolver signing.KeyResolver
	issuer   signing.PrivateKey

	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   func() time.Time

	// Background persistence
	journal  chan journalEntry
	kick     chan struct{}
	dirty    atomic.Bool
	started  atomic.Bool
	flushMu  sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Configuration
	currency      string
	maxAmount     types.Money
	batchSize     int
	flushInterval time.Duration
	skipMigrate   bool
	initErr       error
}

// New creates a Ledger backed by s. A nil store keeps state in memory only.
func New(s store.Store, opts ...Option) (*Ledger, error) {
	if s == nil {
		s = memory.New()
	}

	l := &Ledger{
		anchors:       anchor.NewRegistry(),
		keyring:       signing.NewKeyring(),
		store:         s,
		plugins:       plugin.NewRegistry(),
		logger:        slog.Default(),
		clock:         time.Now,
		journal:       make(chan journalEntry, defaultJournalBuffer),
		kick:          make(chan struct{}, 1),
		stopChan:      make(chan struct{}),
		currency:      types.DefaultCurrency,
		batchSize:     DefaultBatchSize,
		flushInterval: DefaultFlushInterval,
	}

	for _, opt := range opts {
		opt(l)
	}
	if l.initErr != nil {
		return nil, l.initErr
	}

	if l.maxAmount.Currency == "" {
		maxAmount, err := types.ParseMoney(DefaultMaxAmount, l.currency)
		if err != nil {
			return nil, err
		}
		l.maxAmount = maxAmount
	}
	if l.maxAmount.Currency != l.currency {
		return nil, fmt.Errorf("n1c: max amount in %q, ledger keeps %q: %w",
			l.maxAmount.Currency, l.currency, ErrInvalidInput)
	}

	l.state = newState(l.currency)
	l.auth = transaction.NewAuthorizer(signing.KeyResolverFunc(l.publicKey), l.maxAmount)

	if err := l.openIssuer(); err != nil {
		return nil, err
	}

	return l, nil
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithMaxAmount caps the amount of a single transfer.
func WithMaxAmount(m types.Money) Option {
	return func(l *Ledger) {
		l.maxAmount = m
	}
}

// WithCurrency sets the currency balances are kept in.
func WithCurrency(currency string) Option {
	return func(l *Ledger) {
		l.currency = types.Zero(currency).Currency
	}
}

// WithKeyResolver adds an external source of public keys. It is consulted
// before the ledger's own keyring.
func WithKeyResolver(r signing.KeyResolver) Option {
	return func(l *Ledger) {
		l.resolver = r
	}
}

// WithIssuer sets the key that signs issuance. The issuer account, derived
// from the key, is opened on creation and is the only account allowed to
// run a negative balance.
func WithIssuer(priv signing.PrivateKey) Option {
	return func(l *Ledger) {
		if _, err := l.keyring.Add(priv); err != nil {
			l.initErr = fmt.Errorf("n1c: issuer key: %w", err)
			return
		}
		l.issuer = priv
	}
}

// WithPersistConfig configures background persistence.
func WithPersistConfig(batchSize int, flushInterval time.Duration) Option {
	return func(l *Ledger) {
		if batchSize > 0 {
			l.batchSize = batchSize
		}
		if flushInterval > 0 {
			l.flushInterval = flushInterval
		}
	}
}

// WithoutMigrate makes Start skip store migrations, for schemas managed
// outside the ledger.
func WithoutMigrate() Option {
	return func(l *Ledger) {
		l.skipMigrate = true
	}
}

// WithClock replaces time.Now as the source of transaction timestamps.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// Keyring returns the ledger's own keyring, which holds the keys of wallets
// created through CreateWallet and of the issuer.
func (l *Ledger) Keyring() *signing.Keyring { return l.keyring }

// Store returns the backing store.
func (l *Ledger) Store() store.Store { return l.store }

// Currency returns the currency balances are kept in.
func (l *Ledger) Currency() string { return l.currency }

// IssuerAddress returns the issuer account address, or "" without an issuer.
func (l *Ledger) IssuerAddress() string {
	if l.issuer == nil {
		return ""
	}
	pub, _ := l.issuer.Public().(signing.PublicKey)
	return signing.AddressFromPublicKey(pub)
}

// Start migrates the store, initializes plugins and begins the persistence worker.
func (l *Ledger) Start(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if !l.skipMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			l.started.Store(false)
			return err
		}
	}

	l.plugins.EmitInit(ctx, l)

	l.stopChan = make(chan struct{})
	l.wg.Add(1)
	go l.persistWorker(ctx)

	l.logger.Info("ledger started",
		"currency", l.currency,
		"max_amount", l.maxAmount.String(),
		"batch_size", l.batchSize,
		"flush_interval", l.flushInterval,
		"plugins", l.plugins.Count(),
	)

	return nil
}

// Stop drains pending writes, shuts plugins down and closes the store.
// The ledger keeps serving reads and commits afterwards, but nothing more
// reaches the store.
func (l *Ledger) Stop() error {
	if !l.started.CompareAndSwap(true, false) {
		return ErrNotStarted
	}
	close(l.stopChan)
	l.wg.Wait()

	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	l.logger.Info("ledger stopped")
	return l.store.Close()
}

// publicKey resolves through the external resolver first, then the keyring.
func (l *Ledger) publicKey(address string) (signing.PublicKey, bool) {
	if l.resolver != nil {
		if pub, ok := l.resolver.PublicKey(address); ok {
			return pub, true
		}
	}
	return l.keyring.PublicKey(address)
}

// openIssuer makes sure the issuer account exists. Callers hold l.mu or own l exclusively.
func (l *Ledger) openIssuer() error {
	addr := l.IssuerAddress()
	if addr == "" {
		return nil
	}
	if a, ok := l.state.book.Get(addr); ok {
		if !a.IsIssuer() {
			return fmt.Errorf("n1c: issuer address %s belongs to a standard account: %w", addr, ErrDuplicateID)
		}
		return nil
	}
	if _, err := l.state.book.Open(addr, account.KindIssuer); err != nil {
		return err
	}
	l.dirty.Store(true)
	return nil
}
