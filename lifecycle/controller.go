package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/privycredit/privycredit/ledger"
	"github.com/privycredit/privycredit/network"
	"github.com/privycredit/privycredit/seal"
	"github.com/privycredit/privycredit/types"
	"github.com/privycredit/privycredit/wallet"
)

type Phase int

const (
	Idle Phase = iota
	Collecting
	Sealing
	Anchoring
	Complete
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case Sealing:
		return "sealing"
	case Anchoring:
		return "anchoring"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Controller drives one proof from request to completion:
// Idle → Collecting → Sealing → Anchoring → Complete, with Failed reachable
// from every non-terminal phase. No step retries automatically; every retry
// is a fresh user-initiated run from Idle. Runs for the same owner may
// overlap and each produces an independent proof.
type Controller struct {
	session    *wallet.Session
	guard      *network.Guard
	summarizer Summarizer
	anchor     ledger.Ledger // nil skips the Anchoring phase
	logger     zerolog.Logger
	now        func() time.Time

	mtx     sync.RWMutex
	phase   Phase
	lastErr error
}

func NewController(session *wallet.Session, guard *network.Guard, summarizer Summarizer, anchor ledger.Ledger, logger zerolog.Logger) *Controller {
	return &Controller{
		session:    session,
		guard:      guard,
		summarizer: summarizer,
		anchor:     anchor,
		logger:     logger.With().Str("module", "lifecycle").Logger(),
		now:        time.Now,
		phase:      Idle,
	}
}

// SetClock overrides the controller's time source. Test use only.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// Phase reports the most recent run's phase.
func (c *Controller) Phase() Phase {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.phase
}

// LastErr reports why the most recent run failed, nil otherwise.
func (c *Controller) LastErr() error {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.lastErr
}

func (c *Controller) setPhase(p Phase) {
	c.mtx.Lock()
	c.phase = p
	if p != Failed {
		c.lastErr = nil
	}
	c.mtx.Unlock()
	c.logger.Debug().Str("phase", p.String()).Msg("lifecycle transition")
}

func (c *Controller) fail(err error) error {
	c.mtx.Lock()
	c.phase = Failed
	c.lastErr = err
	c.mtx.Unlock()
	c.logger.Warn().Err(err).Msg("lifecycle run failed")
	return err
}

// ownerUnchanged verifies the session still holds the account captured when
// the run left Idle. A disconnect or account switch invalidates the run
// rather than letting it finish under a new identity.
func (c *Controller) ownerUnchanged(owner common.Address) error {
	current, ok := c.session.Account()
	if !ok {
		return types.ErrWalletNotReady
	}
	if current != owner {
		return types.ErrAccountChanged
	}
	return nil
}

// Generate runs one full proof lifecycle for the connected account and
// returns the completed proof. The proof carries status derived from its
// bands and expires exactly types.ValidityWindow after creation.
func (c *Controller) Generate(ctx context.Context) (*types.Proof, error) {
	if c.session.State() != wallet.Connected {
		return nil, c.fail(types.ErrWalletNotReady)
	}
	if !c.guard.IsCompliant() {
		return nil, c.fail(types.ErrWrongNetwork)
	}
	owner, ok := c.session.Account()
	if !ok {
		return nil, c.fail(types.ErrWalletNotReady)
	}

	c.setPhase(Collecting)
	factors, err := c.summarizer.Summarize(ctx, owner)
	if err != nil {
		return nil, c.fail(fmt.Errorf("collecting signals: %w", err))
	}
	if !factors.Valid() {
		return nil, c.fail(fmt.Errorf("collecting signals: invalid bands %v", factors))
	}
	if err := c.ownerUnchanged(owner); err != nil {
		return nil, c.fail(err)
	}

	c.setPhase(Sealing)
	createdAt := c.now().UTC()
	epoch := types.EpochOf(createdAt)
	sealed := seal.Seal(owner, epoch, factors)
	if err := c.ownerUnchanged(owner); err != nil {
		return nil, c.fail(err)
	}

	var anchorTx common.Hash
	if c.anchor != nil {
		c.setPhase(Anchoring)
		anchorTx, err = c.anchor.SubmitProof(ctx, owner, ledger.Record{
			ID:         sealed.ID,
			Epoch:      epoch,
			Commitment: sealed.Commitment,
			Stability:  factors.Stability,
			Inflows:    factors.Inflows,
			Risk:       factors.Risk,
		})
		if err != nil {
			// a declined signature is recoverable and must stay
			// distinguishable from RPC/contract failures
			if errors.Is(err, types.ErrUserRejected) {
				return nil, c.fail(err)
			}
			return nil, c.fail(types.Classify(err))
		}
		if err := c.ownerUnchanged(owner); err != nil {
			return nil, c.fail(err)
		}
	}

	proof := &types.Proof{
		ID:           sealed.ID,
		Owner:        owner,
		Epoch:        epoch,
		Factors:      factors,
		Commitment:   sealed.Commitment,
		AnchorTxHash: anchorTx,
		CreatedAt:    createdAt,
		ExpiresAt:    createdAt.Add(types.ValidityWindow),
	}

	c.setPhase(Complete)
	c.logger.Debug().
		Str("proof_id", proof.ID.Hex()).
		Str("status", string(proof.Status())).
		Bool("anchored", proof.Anchored()).
		Msg("proof complete")
	return proof, nil
}
