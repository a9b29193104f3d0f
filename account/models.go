package account

import (
	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/types"
)

// Account is the tenant boundary. It is owned by exactly one principal,
// identified by an opaque OwnerID supplied by the identity collaborator.
// The engine never interprets OwnerID; it only stores and looks it up.
type Account struct {
	types.Entity
	ID      id.AccountID `json:"id"`
	OwnerID string       `json:"owner_id"`

	// BillingKey is the account's key in the remote authoritative
	// balance service (e.g. a payment-provider customer ID). Empty
	// until the billing collaborator provisions one; balance queries
	// use local cycle math until then.
	BillingKey string `json:"billing_key,omitempty"`

	Name     string            `json:"name,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
