package network

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/privycredit/privycredit/types"
	"github.com/privycredit/privycredit/wallet"
)

// Guard compares the session's active chain against the single chain this
// system operates on and drives the user-triggered switch flow.
type Guard struct {
	mtx      sync.Mutex
	session  *wallet.Session
	provider wallet.Provider
	required wallet.ChainParams
	logger   zerolog.Logger

	dismissed bool
}

// NewGuard wires the guard to session so that every chain change re-arms the
// non-compliance advisory.
func NewGuard(session *wallet.Session, provider wallet.Provider, required wallet.ChainParams, logger zerolog.Logger) *Guard {
	g := &Guard{
		session:  session,
		provider: provider,
		required: required,
		logger:   logger.With().Str("module", "network").Logger(),
	}
	session.OnChainChanged(func(uint64) {
		g.mtx.Lock()
		g.dismissed = false
		g.mtx.Unlock()
	})
	return g
}

func (g *Guard) Required() wallet.ChainParams {
	return g.required
}

// IsCompliant reports whether the wallet is connected and on the required
// chain.
func (g *Guard) IsCompliant() bool {
	if g.session.State() != wallet.Connected {
		return false
	}
	chainID, known := g.session.ChainID()
	return known && chainID == g.required.ID
}

// ShouldWarn reports whether the non-compliance advisory should be shown.
// Dismissal is per-session and is undone by the next chain change.
func (g *Guard) ShouldWarn() bool {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return !g.IsCompliant() && !g.dismissed
}

func (g *Guard) DismissWarning() {
	g.mtx.Lock()
	g.dismissed = true
	g.mtx.Unlock()
}

// RequestSwitch asks the wallet to move to the required chain. When the chain
// is already active this is a no-op and no provider call is issued. When the
// provider does not know the chain, a registration with the fixed ChainParams
// is attempted once before retrying the switch. A user rejection of either
// step surfaces as ErrSwitchRejected with state unchanged; there is no
// automatic retry.
func (g *Guard) RequestSwitch(ctx context.Context) error {
	if g.IsCompliant() {
		return nil
	}
	if g.provider == nil {
		return types.ErrNoProvider
	}

	err := g.provider.SwitchChain(ctx, g.required.ID)
	if err != nil && types.IsUnknownChain(err) {
		g.logger.Debug().
			Uint64("chain_id", g.required.ID).
			Msg("chain unknown to provider, registering")
		if addErr := g.provider.AddChain(ctx, g.required); addErr != nil {
			return g.classifySwitch(addErr)
		}
		err = g.provider.SwitchChain(ctx, g.required.ID)
	}
	if err != nil {
		return g.classifySwitch(err)
	}

	g.logger.Debug().Uint64("chain_id", g.required.ID).Msg("switched network")
	return nil
}

func (g *Guard) classifySwitch(err error) error {
	err = types.Classify(err)
	if errors.Is(err, types.ErrUserRejected) {
		g.logger.Warn().Msg("network switch rejected by user")
		return fmt.Errorf("%w: %v", types.ErrSwitchRejected, err)
	}
	g.logger.Warn().Err(err).Msg("network switch failed")
	return err
}
