// Package mulligan defines the single-use free-redo token: its secret
// format, its issue/redeem result types, and its generation.
package mulligan

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/production"
)

// Info is the read-only view of a mulligan token, used to render a
// confirmation page before the customer commits. Looking it up never
// mutates state.
type Info struct {
	ProductionID id.ProductionID   `json:"production_id"`
	Title        string            `json:"title"`
	Status       production.Status `json:"status"`
	Available    bool              `json:"available"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Result is the outcome of a successful redemption.
type Result struct {
	OriginalID id.ProductionID `json:"original_id"`
	// Replacement is the new zero-cost production queued in place of
	// the original. Its token cost is absorbed, not charged.
	Replacement *production.Production `json:"replacement"`
}

// Token secrets exclude ambiguous characters (0/O, 1/I/l) so they
// survive being read aloud or retyped from an email.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"

var segments = []int{8, 4, 4, 12}

// GenerateToken returns a new cryptographically random single-use
// token in the form XXXXXXXX-XXXX-XXXX-XXXXXXXXXXXX.
func GenerateToken() (string, error) {
	parts := make([]string, 0, len(segments))
	for _, n := range segments {
		var b strings.Builder
		b.Grow(n)
		for i := 0; i < n; i++ {
			idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
			if err != nil {
				return "", err
			}
			b.WriteByte(alphabet[idx.Int64()])
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "-"), nil
}
