package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are cached per interface at registration time.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                 []OnInit
	onShutdown             []OnShutdown
	onAccountOpened        []OnAccountOpened
	onAnchorRegistered     []OnAnchorRegistered
	onTransactionCommitted []OnTransactionCommitted
	onTransactionRejected  []OnTransactionRejected
	onBalanceRecomputed    []OnBalanceRecomputed
	onIntegrityChecked     []OnIntegrityChecked
	onPersistFlushed       []OnPersistFlushed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnAccountOpened); ok {
		r.onAccountOpened = append(r.onAccountOpened, v)
		hooks = append(hooks, "OnAccountOpened")
	}
	if v, ok := p.(OnAnchorRegistered); ok {
		r.onAnchorRegistered = append(r.onAnchorRegistered, v)
		hooks = append(hooks, "OnAnchorRegistered")
	}
	if v, ok := p.(OnTransactionCommitted); ok {
		r.onTransactionCommitted = append(r.onTransactionCommitted, v)
		hooks = append(hooks, "OnTransactionCommitted")
	}
	if v, ok := p.(OnTransactionRejected); ok {
		r.onTransactionRejected = append(r.onTransactionRejected, v)
		hooks = append(hooks, "OnTransactionRejected")
	}
	if v, ok := p.(OnBalanceRecomputed); ok {
		r.onBalanceRecomputed = append(r.onBalanceRecomputed, v)
		hooks = append(hooks, "OnBalanceRecomputed")
	}
	if v, ok := p.(OnIntegrityChecked); ok {
		r.onIntegrityChecked = append(r.onIntegrityChecked, v)
		hooks = append(hooks, "OnIntegrityChecked")
	}
	if v, ok := p.(OnPersistFlushed); ok {
		r.onPersistFlushed = append(r.onPersistFlushed, v)
		hooks = append(hooks, "OnPersistFlushed")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"hooks", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p, "OnInit", func() error { return p.OnInit(ctx, ledger) })
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p, "OnShutdown", func() error { return p.OnShutdown(ctx) })
	}
}

// EmitAccountOpened emits an account opened event.
func (r *Registry) EmitAccountOpened(ctx context.Context, a *account.Account) {
	r.mu.RLock()
	plugins := r.onAccountOpened
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p, "OnAccountOpened", func() error { return p.OnAccountOpened(ctx, a) })
	}
}

// EmitAnchorRegistered emits an anchor registered event.
func (r *Registry) EmitAnchorRegistered(ctx context.Context, a *anchor.Anchor) {
	r.mu.RLock()
	plugins := r.onAnchorRegistered
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p, "OnAnchorRegistered", func() error { return p.OnAnchorRegistered(ctx, a) })
	}
}

// EmitTransactionCommitted emits a transaction committed event.
func (r *Registry) EmitTransactionCommitted(ctx context.Context, tx *transaction.Transaction) {
	r.mu.RLock()
	plugins := r.onTransactionCommitted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p, "OnTransactionCommitted", func() error { return p.OnTransactionCommitted(ctx, tx) })
	}
}

// EmitTransactionRejected emits a transaction rejected event.
func (r *Registry) EmitTransactionRejected(ctx context.Context, tx *transaction.Transaction, reason error) {
	r.mu.RLock()
	plugins := r.onTransactionRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p, "OnTransactionRejected", func() error { return p.OnTransactionRejected(ctx, tx, reason) })
	}
}

// EmitBalanceRecomputed emits a balance recomputed event.
func (r *Registry) EmitBalanceRecomputed(ctx context.Context, address string, previous, current types.Money) {
	r.mu.RLock()
	plugins := r.onBalanceRecomputed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p, "OnBalanceRecomputed", func() error {
			return p.OnBalanceRecomputed(ctx, address, previous, current)
		})
	}
}

// EmitIntegrityChecked emits an integrity checked event.
func (r *Registry) EmitIntegrityChecked(ctx context.Context, consistent bool, violations int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onIntegrityChecked
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p, "OnIntegrityChecked", func() error {
			return p.OnIntegrityChecked(ctx, consistent, violations, elapsed)
		})
	}
}

// EmitPersistFlushed emits a persist flushed event.
func (r *Registry) EmitPersistFlushed(ctx context.Context, transactions int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onPersistFlushed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p, "OnPersistFlushed", func() error { return p.OnPersistFlushed(ctx, transactions, elapsed) })
	}
}

// call runs one hook and logs its failure. Hook errors never reach the caller.
func (r *Registry) call(ctx context.Context, p Plugin, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, p.Name(), fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", p.Name(),
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
