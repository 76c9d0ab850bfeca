package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// GrantValidity is the lifetime of a share grant. It is deliberately much
// shorter than the proof's own validity; resolution fails closed once it
// passes even when the underlying proof is still live.
const GrantValidity = 72 * time.Hour

// ShareGrant authorizes third parties to resolve a redacted view of one proof
// until expiry. Grants are read, not consumed: any number of verifiers may
// resolve the same token.
type ShareGrant struct {
	Token      string
	ProofID    common.Hash
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedBy string
	ConsumedAt *time.Time
}

// IsExpired checks the grant against now. All comparisons use UTC.
func (g *ShareGrant) IsExpired(now time.Time) bool {
	return now.UTC().After(g.ExpiresAt.UTC())
}
