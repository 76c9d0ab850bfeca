package ledger

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/privycredit/privycredit/types"
)

// Record is the payload of one submitProof write: the proof id, its epoch,
// the band commitment, and the three public band values. Nothing else about
// the owner's finances ever reaches the ledger.
type Record struct {
	ID         common.Hash
	Epoch      uint64
	Commitment common.Hash
	Stability  types.Band
	Inflows    types.Band
	Risk       types.Band
}

// Summary is the read-side view of an anchored proof, as returned by
// getProofSummary.
type Summary struct {
	Owner      common.Address
	Epoch      uint64
	Commitment common.Hash
	Stability  types.Band
	Inflows    types.Band
	Risk       types.Band
	Valid      bool
	CreatedAt  time.Time
}

// Ledger is the single external anchor contract: one write entry point, one
// read entry point, and event-based recovery of the submission transaction.
// Its concurrency and consistency guarantees are the contract's own; callers
// never cache its state authoritatively.
type Ledger interface {
	// SubmitProof anchors a record and returns the transaction hash. A
	// user-declined signature surfaces as ErrUserRejected; any other
	// failure wraps ErrLedgerWrite.
	SubmitProof(ctx context.Context, from common.Address, rec Record) (common.Hash, error)

	// GetProofSummary resolves an anchored record, or ErrNotFound.
	GetProofSummary(ctx context.Context, id common.Hash) (*Summary, error)

	// FindSubmissionTx recovers the anchoring transaction hash from
	// ProofSubmitted events. ok is false when no event is in range.
	FindSubmissionTx(ctx context.Context, id common.Hash) (tx common.Hash, ok bool, err error)
}
