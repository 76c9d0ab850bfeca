package types

import "time"

// VerificationView is the privacy boundary of the whole system: the only
// shape a verifier ever sees. Its fields are a closed whitelist; nothing else
// about the proof or its owner may appear here, in error messages, or in logs.
type VerificationView struct {
	Status       ProofStatus `json:"status"`
	Stability    Band        `json:"stability"`
	Inflows      Band        `json:"inflows"`
	Risk         Band        `json:"risk"`
	OwnerDisplay string      `json:"owner_display"`
	AnchorTxHash string      `json:"anchor_tx_hash,omitempty"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

// ViewOf redacts a proof into its public verification shape.
func ViewOf(p *Proof) VerificationView {
	v := VerificationView{
		Status:       p.Status(),
		Stability:    p.Factors.Stability,
		Inflows:      p.Factors.Inflows,
		Risk:         p.Factors.Risk,
		OwnerDisplay: TruncateAddress(p.Owner),
		ExpiresAt:    p.ExpiresAt,
	}
	if p.Anchored() {
		v.AnchorTxHash = p.AnchorTxHash.Hex()
	}
	return v
}
