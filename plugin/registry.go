package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onAccountCreated       []OnAccountCreated
	onSubscriptionUpserted []OnSubscriptionUpserted
	onCycleOpened          []OnCycleOpened
	onSpendGranted         []OnSpendGranted
	onSpendRejected        []OnSpendRejected
	onRefunded             []OnRefunded
	onProductionCompleted  []OnProductionCompleted
	onMulliganRedeemed     []OnMulliganRedeemed
	onBalanceResolved      []OnBalanceResolved
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnAccountCreated); ok {
		r.onAccountCreated = append(r.onAccountCreated, v)
	}
	if v, ok := p.(OnSubscriptionUpserted); ok {
		r.onSubscriptionUpserted = append(r.onSubscriptionUpserted, v)
	}
	if v, ok := p.(OnCycleOpened); ok {
		r.onCycleOpened = append(r.onCycleOpened, v)
	}
	if v, ok := p.(OnSpendGranted); ok {
		r.onSpendGranted = append(r.onSpendGranted, v)
	}
	if v, ok := p.(OnSpendRejected); ok {
		r.onSpendRejected = append(r.onSpendRejected, v)
	}
	if v, ok := p.(OnRefunded); ok {
		r.onRefunded = append(r.onRefunded, v)
	}
	if v, ok := p.(OnProductionCompleted); ok {
		r.onProductionCompleted = append(r.onProductionCompleted, v)
	}
	if v, ok := p.(OnMulliganRedeemed); ok {
		r.onMulliganRedeemed = append(r.onMulliganRedeemed, v)
	}
	if v, ok := p.(OnBalanceResolved); ok {
		r.onBalanceResolved = append(r.onBalanceResolved, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnAccountCreated)(nil)).Elem(), "OnAccountCreated")
	checkInterface(reflect.TypeOf((*OnSubscriptionUpserted)(nil)).Elem(), "OnSubscriptionUpserted")
	checkInterface(reflect.TypeOf((*OnCycleOpened)(nil)).Elem(), "OnCycleOpened")
	checkInterface(reflect.TypeOf((*OnSpendGranted)(nil)).Elem(), "OnSpendGranted")
	checkInterface(reflect.TypeOf((*OnSpendRejected)(nil)).Elem(), "OnSpendRejected")
	checkInterface(reflect.TypeOf((*OnRefunded)(nil)).Elem(), "OnRefunded")
	checkInterface(reflect.TypeOf((*OnProductionCompleted)(nil)).Elem(), "OnProductionCompleted")
	checkInterface(reflect.TypeOf((*OnMulliganRedeemed)(nil)).Elem(), "OnMulliganRedeemed")
	checkInterface(reflect.TypeOf((*OnBalanceResolved)(nil)).Elem(), "OnBalanceResolved")

	return interfaces
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
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, ledger)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAccountCreated emits an account created event.
func (r *Registry) EmitAccountCreated(ctx context.Context, acct interface{}) {
	r.mu.RLock()
	plugins := r.onAccountCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccountCreated(ctx, acct)
		}); err != nil {
			r.logger.Warn("plugin OnAccountCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionUpserted emits a subscription upserted event.
func (r *Registry) EmitSubscriptionUpserted(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionUpserted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionUpserted(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionUpserted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCycleOpened emits a cycle opened event.
func (r *Registry) EmitCycleOpened(ctx context.Context, cyc interface{}) {
	r.mu.RLock()
	plugins := r.onCycleOpened
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCycleOpened(ctx, cyc)
		}); err != nil {
			r.logger.Warn("plugin OnCycleOpened failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSpendGranted emits a spend granted event.
func (r *Registry) EmitSpendGranted(ctx context.Context, e interface{}) {
	r.mu.RLock()
	plugins := r.onSpendGranted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSpendGranted(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnSpendGranted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSpendRejected emits a spend rejected event.
func (r *Registry) EmitSpendRejected(ctx context.Context, accountID string, cost, balance int64) {
	r.mu.RLock()
	plugins := r.onSpendRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSpendRejected(ctx, accountID, cost, balance)
		}); err != nil {
			r.logger.Warn("plugin OnSpendRejected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRefunded emits a refund event.
func (r *Registry) EmitRefunded(ctx context.Context, e interface{}) {
	r.mu.RLock()
	plugins := r.onRefunded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRefunded(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnRefunded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitProductionCompleted emits a production completed event.
func (r *Registry) EmitProductionCompleted(ctx context.Context, prod interface{}) {
	r.mu.RLock()
	plugins := r.onProductionCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnProductionCompleted(ctx, prod)
		}); err != nil {
			r.logger.Warn("plugin OnProductionCompleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitMulliganRedeemed emits a mulligan redeemed event.
func (r *Registry) EmitMulliganRedeemed(ctx context.Context, original, replacement interface{}) {
	r.mu.RLock()
	plugins := r.onMulliganRedeemed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnMulliganRedeemed(ctx, original, replacement)
		}); err != nil {
			r.logger.Warn("plugin OnMulliganRedeemed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBalanceResolved emits a balance resolved event.
func (r *Registry) EmitBalanceResolved(ctx context.Context, accountID string, balance int64, source string) {
	r.mu.RLock()
	plugins := r.onBalanceResolved
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBalanceResolved(ctx, accountID, balance, source)
		}); err != nil {
			r.logger.Warn("plugin OnBalanceResolved failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the spend path.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
