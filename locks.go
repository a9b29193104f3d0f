package tokenledger

import (
	"sync"

	"github.com/BarriosA2I/tokenledger/id"
)

// accountLocks hands out one mutex per account so mutation entry
// points serialize per account without blocking unrelated accounts.
// Mutexes are never removed: the set of live accounts is small
// relative to the cost of safe eviction.
type accountLocks struct {
	locks sync.Map // account ID string -> *sync.Mutex
}

func (a *accountLocks) lock(accountID id.AccountID) func() {
	v, _ := a.locks.LoadOrStore(accountID.String(), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
