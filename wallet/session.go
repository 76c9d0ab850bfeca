package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/privycredit/privycredit/types"
)

type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
	ConnError
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case ConnError:
		return "error"
	}
	return fmt.Sprintf("ConnState(%d)", int(s))
}

// Session tracks the connected account and active chain of one wallet. It is
// local observable state only: Disconnect never tears down the underlying
// wallet connection, and no reconnection is attempted automatically.
//
// Invariant: an account is held iff the state is Connected.
type Session struct {
	mtx      sync.RWMutex
	provider Provider
	logger   zerolog.Logger

	state      ConnState
	account    common.Address
	hasAccount bool
	chainID    uint64
	chainKnown bool

	onChain     []func(uint64)
	unsubscribe func()
}

// NewSession wraps provider and starts ingesting its events. Close must be
// called when the session's lifetime ends. A nil provider is allowed; Connect
// then fails with ErrNoProvider.
func NewSession(provider Provider, logger zerolog.Logger) *Session {
	s := &Session{
		provider: provider,
		logger:   logger.With().Str("module", "wallet").Logger(),
		state:    Disconnected,
	}
	if provider != nil {
		s.unsubscribe = provider.Subscribe(s.ingest)
	}
	return s
}

// Close detaches the session from provider events.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// OnChainChanged registers fn to run after every chain change, including the
// one observed during Connect. Used by the compliance guard to re-evaluate.
func (s *Session) OnChainChanged(fn func(chainID uint64)) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.onChain = append(s.onChain, fn)
}

// Connect requests account access from the wallet. On user cancellation the
// session resets to Disconnected and ErrUserRejected is returned.
func (s *Session) Connect(ctx context.Context) error {
	if s.provider == nil {
		return types.ErrNoProvider
	}

	s.mtx.Lock()
	s.state = Connecting
	s.mtx.Unlock()

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		err = types.Classify(err)
		// a rejection is a clean reset; provider failures park the
		// session in ConnError until the next Connect attempt
		state := ConnError
		if errors.Is(err, types.ErrUserRejected) {
			state = Disconnected
		}
		s.mtx.Lock()
		s.state = state
		s.hasAccount = false
		s.mtx.Unlock()
		s.logger.Warn().Err(err).Msg("wallet connect failed")
		return err
	}
	if len(accounts) == 0 {
		s.mtx.Lock()
		s.state = Disconnected
		s.hasAccount = false
		s.mtx.Unlock()
		return fmt.Errorf("%w: provider returned no accounts", types.ErrUserRejected)
	}

	chainID, err := s.provider.ChainID(ctx)

	s.mtx.Lock()
	s.account = accounts[0]
	s.hasAccount = true
	s.state = Connected
	if err == nil {
		s.chainID = chainID
		s.chainKnown = true
	}
	s.mtx.Unlock()

	if err != nil {
		// connected, but the active chain is unknown until the provider
		// pushes a chain-changed event
		s.logger.Warn().Err(err).Msg("could not read chain id")
	} else {
		s.logger.Debug().
			Str("account", types.TruncateAddress(accounts[0])).
			Uint64("chain_id", chainID).
			Msg("wallet connected")
		s.notifyChain(chainID)
	}
	return nil
}

// Disconnect clears local session state. It always succeeds and has no
// network side effects.
func (s *Session) Disconnect() {
	s.mtx.Lock()
	s.state = Disconnected
	s.account = common.Address{}
	s.hasAccount = false
	s.mtx.Unlock()
	s.logger.Debug().Msg("wallet disconnected")
}

func (s *Session) State() ConnState {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.state
}

func (s *Session) Account() (common.Address, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.account, s.hasAccount
}

func (s *Session) ChainID() (uint64, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.chainID, s.chainKnown
}

// ingest reflects provider-pushed events into session state. A chain change
// is a soft reset: the chain id is updated in place and observers are
// notified; nothing else is discarded.
func (s *Session) ingest(ev Event) {
	switch ev.Kind {
	case EventAccountsChanged:
		s.mtx.Lock()
		if len(ev.Accounts) == 0 {
			s.account = common.Address{}
			s.hasAccount = false
			s.state = Disconnected
			s.mtx.Unlock()
			s.logger.Debug().Msg("accounts cleared by provider")
			return
		}
		s.account = ev.Accounts[0]
		s.hasAccount = true
		s.state = Connected
		s.mtx.Unlock()
		s.logger.Debug().
			Str("account", types.TruncateAddress(ev.Accounts[0])).
			Msg("account changed")

	case EventChainChanged:
		s.mtx.Lock()
		s.chainID = ev.ChainID
		s.chainKnown = true
		s.mtx.Unlock()
		s.logger.Debug().Uint64("chain_id", ev.ChainID).Msg("chain changed")
		s.notifyChain(ev.ChainID)
	}
}

func (s *Session) notifyChain(chainID uint64) {
	s.mtx.RLock()
	fns := make([]func(uint64), len(s.onChain))
	copy(fns, s.onChain)
	s.mtx.RUnlock()
	for _, fn := range fns {
		fn(chainID)
	}
}
