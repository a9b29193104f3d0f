// Package tokenledger provides a token ledger and guarded-consumption
// engine for metered creative services.
//
// Tokenledger is designed as a library, not a service. Import it
// directly into your Go application. It provides:
//
//   - Atomic check-and-deduct token spends (no race window between
//     balance check and deduction, under any concurrency)
//   - An immutable, append-only audit ledger with running balance
//     checkpoints and idempotent replay by key
//   - Per-cycle token allocations opened lazily from subscription
//     quotas, with no background workers
//   - Remote-authoritative balance display that degrades to local
//     cycle arithmetic when the billing backend is unreachable
//   - Single-use mulligan tokens for free redos of completed work
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/BarriosA2I/tokenledger"
//	    "github.com/BarriosA2I/tokenledger/store/postgres"
//	)
//
//	// Initialize store
//	store, err := postgres.New(databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create ledger
//	l := tokenledger.New(store)
//
//	// Start the ledger (runs migrations, initializes plugins)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// Accounts own everything; subscriptions record the externally
// validated tier and its monthly token quota:
//
//	l.UpsertSubscription(ctx, &subscription.Subscription{
//	    AccountID:     acct.ID,
//	    Tier:          "creator",
//	    MonthlyTokens: subscription.TokensCreator,
//	    Status:        subscription.StatusActive,
//	})
//
// The guard is the only spend path. It either grants and records, or
// rejects and records nothing:
//
//	res, err := l.Reserve(ctx, acct.ID, cost, idemKey)
//	if res.Granted {
//	    // enqueue the job
//	}
//
// Productions tie spends to units of work, and completed productions
// carry a single-use mulligan token for one free redo:
//
//	prod, res, err := l.StartProduction(ctx, acct.ID, spec)
//	...
//	l.CompleteProduction(ctx, prod.ID)   // issues the mulligan
//	l.RedeemMulligan(ctx, token)         // queues the free replacement
//
// # Concurrency
//
// Every balance mutation is a single atomic state transition in the
// store, and the engine additionally serializes mutations per account.
// N concurrent reserves against a balance that covers K of them grant
// exactly K; the rest are rejected. The ledger's BalanceAfter
// checkpoints always reconstruct the cycle's used counter.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	acct_01h2xcejqtf2nbrexx3vqjhp41   // Account ID
//	cyc_01h2xcejqtf2nbrexx3vqjhp41    // Cycle ID
//	entry_01h455vb4pex5vsknk084sn02q  // Ledger entry ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package tokenledger
