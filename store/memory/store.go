package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	tokenledger "github.com/BarriosA2I/tokenledger"
	"github.com/BarriosA2I/tokenledger/account"
	"github.com/BarriosA2I/tokenledger/cycle"
	"github.com/BarriosA2I/tokenledger/entry"
	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/production"
	"github.com/BarriosA2I/tokenledger/subscription"
)

// Store is an in-memory Store implementation for tests and examples.
// Records are stored and returned by value, matching the SQL stores:
// a struct handed to a caller never changes under it.
type Store struct {
	mu sync.RWMutex

	accounts      map[string]*account.Account
	subscriptions map[string]*subscription.Subscription // keyed by account ID
	cycles        map[string]*cycle.Cycle
	entries       []entry.Entry
	entriesByKey  map[string]*entry.Entry
	productions   map[string]*production.Production
}

func New() *Store {
	return &Store{
		accounts:      make(map[string]*account.Account),
		subscriptions: make(map[string]*subscription.Subscription),
		cycles:        make(map[string]*cycle.Cycle),
		entries:       make([]entry.Entry, 0),
		entriesByKey:  make(map[string]*entry.Entry),
		productions:   make(map[string]*production.Production),
	}
}

// Account store implementation

func (s *Store) CreateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID.String()]; exists {
		return tokenledger.ErrAlreadyExists
	}
	cp := *a
	s.accounts[a.ID.String()] = &cp
	return nil
}

func (s *Store) GetAccount(_ context.Context, accountID id.AccountID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accounts[accountID.String()]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, tokenledger.ErrAccountNotFound
}

func (s *Store) GetAccountByOwner(_ context.Context, ownerID string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.OwnerID == ownerID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, tokenledger.ErrAccountNotFound
}

func (s *Store) UpdateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID.String()]; !exists {
		return tokenledger.ErrAccountNotFound
	}
	cp := *a
	s.accounts[a.ID.String()] = &cp
	return nil
}

// Subscription store implementation

func (s *Store) UpsertSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sub
	s.subscriptions[sub.AccountID.String()] = &cp
	return nil
}

func (s *Store) GetSubscription(_ context.Context, accountID id.AccountID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions[accountID.String()]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, tokenledger.ErrSubscriptionNotFound
}

// Cycle store implementation

func (s *Store) CreateCycle(_ context.Context, c *cycle.Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Enforce the (account_id, cycle_number) uniqueness constraint.
	for _, existing := range s.cycles {
		if existing.AccountID.String() == c.AccountID.String() && existing.Number == c.Number {
			return tokenledger.ErrCycleExists
		}
	}
	cp := *c
	s.cycles[c.ID.String()] = &cp
	return nil
}

func (s *Store) GetCycle(_ context.Context, cycleID id.CycleID) (*cycle.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.cycles[cycleID.String()]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, tokenledger.ErrCycleNotFound
}

func (s *Store) GetActiveCycle(_ context.Context, accountID id.AccountID, at time.Time) (*cycle.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *cycle.Cycle
	for _, c := range s.cycles {
		if c.AccountID.String() == accountID.String() && c.Contains(at) {
			if best == nil || c.Number > best.Number {
				best = c
			}
		}
	}
	if best == nil {
		return nil, tokenledger.ErrNoActiveCycle
	}
	cp := *best
	return &cp, nil
}

func (s *Store) GetLatestCycle(_ context.Context, accountID id.AccountID) (*cycle.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *cycle.Cycle
	for _, c := range s.cycles {
		if c.AccountID.String() == accountID.String() {
			if best == nil || c.Number > best.Number {
				best = c
			}
		}
	}
	if best == nil {
		return nil, tokenledger.ErrCycleNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *Store) ListCycles(_ context.Context, accountID id.AccountID) ([]*cycle.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*cycle.Cycle, 0)
	for _, c := range s.cycles {
		if c.AccountID.String() == accountID.String() {
			cp := *c
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (s *Store) ReserveTokens(_ context.Context, cycleID id.CycleID, cost int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cycles[cycleID.String()]
	if !ok {
		return 0, tokenledger.ErrCycleNotFound
	}
	if c.TokensAllocated-c.TokensUsed < cost {
		return 0, tokenledger.ErrInsufficientBalance
	}
	c.TokensUsed += cost
	c.Touch()
	return c.TokensAllocated - c.TokensUsed, nil
}

func (s *Store) ReleaseTokens(_ context.Context, cycleID id.CycleID, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cycles[cycleID.String()]
	if !ok {
		return 0, tokenledger.ErrCycleNotFound
	}
	c.TokensUsed -= amount
	if c.TokensUsed < 0 {
		c.TokensUsed = 0
	}
	c.Touch()
	return c.TokensAllocated - c.TokensUsed, nil
}

// Ledger entry store implementation

func (s *Store) AppendEntry(_ context.Context, e *entry.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.IdempotencyKey != "" {
		if _, exists := s.entriesByKey[e.IdempotencyKey]; exists {
			return tokenledger.ErrDuplicateEntry
		}
	}

	s.entries = append(s.entries, *e)
	stored := &s.entries[len(s.entries)-1]
	if e.IdempotencyKey != "" {
		s.entriesByKey[e.IdempotencyKey] = stored
	}
	return nil
}

func (s *Store) GetEntryByKey(_ context.Context, idempotencyKey string) (*entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entriesByKey[idempotencyKey]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, tokenledger.ErrEntryNotFound
}

func (s *Store) ListEntries(_ context.Context, accountID id.AccountID, opts entry.ListOpts) ([]*entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Newest first, matching the SQL stores.
	result := make([]*entry.Entry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.AccountID.String() != accountID.String() {
			continue
		}
		if !opts.CycleID.IsNil() && e.CycleID.String() != opts.CycleID.String() {
			continue
		}
		if opts.Reason != "" && e.Reason != opts.Reason {
			continue
		}
		cp := e
		result = append(result, &cp)
	}

	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

// Production store implementation

func (s *Store) CreateProduction(_ context.Context, p *production.Production) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productions[p.ID.String()]; exists {
		return tokenledger.ErrAlreadyExists
	}
	cp := *p
	s.productions[p.ID.String()] = &cp
	return nil
}

func (s *Store) GetProduction(_ context.Context, productionID id.ProductionID) (*production.Production, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.productions[productionID.String()]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, tokenledger.ErrProductionNotFound
}

func (s *Store) GetProductionByMulliganToken(_ context.Context, token string) (*production.Production, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if token == "" {
		return nil, tokenledger.ErrMulliganNotFound
	}
	for _, p := range s.productions {
		if p.MulliganToken == token {
			cp := *p
			return &cp, nil
		}
	}
	return nil, tokenledger.ErrMulliganNotFound
}

func (s *Store) UpdateProductionStatus(_ context.Context, productionID id.ProductionID, status production.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.productions[productionID.String()]
	if !ok {
		return tokenledger.ErrProductionNotFound
	}
	p.Status = status
	now := time.Now().UTC()
	if status == production.StatusCompleted {
		p.CompletedAt = &now
	}
	p.Touch()
	return nil
}

func (s *Store) SetMulliganToken(_ context.Context, productionID id.ProductionID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.productions[productionID.String()]
	if !ok {
		return tokenledger.ErrProductionNotFound
	}
	p.MulliganToken = token
	p.Touch()
	return nil
}

func (s *Store) CountProductions(_ context.Context, accountID id.AccountID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, p := range s.productions {
		if p.AccountID.String() == accountID.String() {
			n++
		}
	}
	return n, nil
}

func (s *Store) ConsumeMulligan(_ context.Context, productionID id.ProductionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.productions[productionID.String()]
	if !ok {
		return tokenledger.ErrProductionNotFound
	}
	if p.MulliganUsed {
		return tokenledger.ErrMulliganAlreadyUsed
	}
	p.MulliganUsed = true
	p.Touch()
	return nil
}

// Core store implementation

func (s *Store) Migrate(_ context.Context) error { return nil }
func (s *Store) Ping(_ context.Context) error    { return nil }
func (s *Store) Close() error                    { return nil }
