package tokenledger

import (
	"context"

	"github.com/BarriosA2I/tokenledger/cycle"
	"github.com/BarriosA2I/tokenledger/entry"
	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/production"
)

// ListEntries returns the account's audit trail, newest first, filtered
// by the options. Entries are append-only: what this returns is the
// full history of every grant, refund and adjustment.
func (l *Ledger) ListEntries(ctx context.Context, accountID id.AccountID, opts entry.ListOpts) ([]*entry.Entry, error) {
	return l.store.ListEntries(ctx, accountID, opts)
}

// ListCycles returns all of the account's billing cycles in order.
func (l *Ledger) ListCycles(ctx context.Context, accountID id.AccountID) ([]*cycle.Cycle, error) {
	return l.store.ListCycles(ctx, accountID)
}

// GetProduction retrieves a production by ID.
func (l *Ledger) GetProduction(ctx context.Context, productionID id.ProductionID) (*production.Production, error) {
	return l.store.GetProduction(ctx, productionID)
}
