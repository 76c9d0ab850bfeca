package share

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/privycredit/privycredit/ledger"
	"github.com/privycredit/privycredit/types"
)

// ProofSource is the local persistence tier's read side. Implementations
// return types.ErrNotFound for unknown ids.
type ProofSource interface {
	GetProof(ctx context.Context, id common.Hash) (*types.Proof, error)
}

// Resolver turns proofs into shareable links and tokens back into redacted
// verification views. It is the privacy boundary: nothing outside the
// VerificationView whitelist leaves Resolve, on any path, including errors.
type Resolver struct {
	grants  GrantStore
	proofs  ProofSource   // optional
	anchor  ledger.Ledger // optional, consulted when the local tier misses
	baseURL string
	logger  zerolog.Logger
	now     func() time.Time
}

func NewResolver(grants GrantStore, proofs ProofSource, anchor ledger.Ledger, baseURL string, logger zerolog.Logger) *Resolver {
	return &Resolver{
		grants:  grants,
		proofs:  proofs,
		anchor:  anchor,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("module", "share").Logger(),
		now:     time.Now,
	}
}

// SetClock overrides the resolver's time source. Test use only.
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

// CreateShareLink mints a grant for proofID with its own 72-hour expiry and
// returns the public verification URL embedding the token.
func (r *Resolver) CreateShareLink(ctx context.Context, proofID common.Hash) (*types.ShareGrant, string, error) {
	now := r.now().UTC()
	grant := &types.ShareGrant{
		Token:     NewToken(),
		ProofID:   proofID,
		CreatedAt: now,
		ExpiresAt: now.Add(types.GrantValidity),
	}
	if err := r.grants.Put(ctx, grant); err != nil {
		return nil, "", fmt.Errorf("store grant: %w", err)
	}
	url := r.baseURL + "/verify/" + grant.Token
	r.logger.Debug().Str("proof_id", proofID.Hex()).Msg("share link created")
	return grant, url, nil
}

// Resolve maps a share token or raw proof id to a redacted view. Fails
// closed: ErrNotFound for unknown identifiers, ErrExpired once the grant or
// proof lifetime has passed, ErrRevoked when the ledger marks the proof
// invalid. A grant's expiry masks the proof's own validity. verifier is an
// optional reference recorded on the grant; grants are read, never consumed
// destructively.
func (r *Resolver) Resolve(ctx context.Context, tokenOrID, verifier string) (*types.VerificationView, error) {
	now := r.now().UTC()

	proofID, viaGrant, err := r.resolveID(ctx, tokenOrID, verifier, now)
	if err != nil {
		return nil, err
	}

	proof, err := r.lookupProof(ctx, proofID)
	if err != nil {
		return nil, err
	}
	if proof.IsExpired(now) {
		return nil, types.ErrExpired
	}

	// the ledger has the last word on validity even for locally stored
	// proofs; if it cannot be read, the cached view is not served
	if r.anchor != nil && proof.Anchored() {
		sum, err := r.anchor.GetProofSummary(ctx, proof.ID)
		if err != nil {
			r.logger.Warn().Err(err).Str("proof_id", proof.ID.Hex()).Msg("ledger validity check failed")
			return nil, fmt.Errorf("ledger validity check: %w", types.Classify(err))
		}
		if !sum.Valid {
			return nil, types.ErrRevoked
		}
	}

	view := types.ViewOf(proof)
	r.logger.Debug().Bool("via_grant", viaGrant).Str("status", string(view.Status)).Msg("proof resolved")
	return &view, nil
}

func (r *Resolver) resolveID(ctx context.Context, tokenOrID, verifier string, now time.Time) (common.Hash, bool, error) {
	if IsToken(tokenOrID) {
		grant, err := r.grants.Get(ctx, tokenOrID)
		if err != nil {
			return common.Hash{}, false, err
		}
		if grant.IsExpired(now) {
			return common.Hash{}, false, types.ErrExpired
		}
		if verifier != "" {
			if err := r.grants.MarkConsumed(ctx, tokenOrID, verifier, now); err != nil {
				r.logger.Warn().Err(err).Msg("could not record grant consumption")
			}
		}
		return grant.ProofID, true, nil
	}

	// raw proof id: accepted for independent audit of anchored proofs
	trimmed := strings.TrimSpace(tokenOrID)
	if !strings.HasPrefix(trimmed, "0x") {
		trimmed = "0x" + trimmed
	}
	if len(trimmed) != 2+2*common.HashLength || !isHex(trimmed[2:]) {
		return common.Hash{}, false, types.ErrNotFound
	}
	return common.HexToHash(trimmed), false, nil
}

func (r *Resolver) lookupProof(ctx context.Context, id common.Hash) (*types.Proof, error) {
	if r.proofs != nil {
		proof, err := r.proofs.GetProof(ctx, id)
		if err == nil {
			return proof, nil
		}
		if !errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
	}
	if r.anchor == nil {
		return nil, types.ErrNotFound
	}

	sum, err := r.anchor.GetProofSummary(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sum.Valid {
		return nil, types.ErrRevoked
	}

	proof := &types.Proof{
		ID:         id,
		Owner:      sum.Owner,
		Epoch:      sum.Epoch,
		Factors:    types.Factors{Stability: sum.Stability, Inflows: sum.Inflows, Risk: sum.Risk},
		Commitment: sum.Commitment,
		CreatedAt:  sum.CreatedAt,
		ExpiresAt:  sum.CreatedAt.Add(types.ValidityWindow),
	}
	if tx, ok, err := r.anchor.FindSubmissionTx(ctx, id); err == nil && ok {
		proof.AnchorTxHash = tx
	}
	return proof, nil
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
