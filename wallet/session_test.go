package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/privycredit/privycredit/types"
)

var (
	addr1 = common.HexToAddress("0xabc0000000000000000000000000000000000001")
	addr2 = common.HexToAddress("0xabc0000000000000000000000000000000000002")
)

func TestConnectDisconnect(t *testing.T) {
	fp := NewFakeProvider(ScrollSepolia.ID, addr1)
	s := NewSession(fp, zerolog.Nop())
	defer s.Close()

	require.Equal(t, Disconnected, s.State())
	_, ok := s.Account()
	require.False(t, ok)

	require.NoError(t, s.Connect(context.Background()))
	require.Equal(t, Connected, s.State())
	acc, ok := s.Account()
	require.True(t, ok)
	require.Equal(t, addr1, acc)
	chain, ok := s.ChainID()
	require.True(t, ok)
	require.Equal(t, ScrollSepolia.ID, chain)

	s.Disconnect()
	require.Equal(t, Disconnected, s.State())
	_, ok = s.Account()
	require.False(t, ok)
}

func TestConnectNoProvider(t *testing.T) {
	s := NewSession(nil, zerolog.Nop())
	defer s.Close()

	err := s.Connect(context.Background())
	require.ErrorIs(t, err, types.ErrNoProvider)
	require.Equal(t, Disconnected, s.State())
}

func TestConnectUserRejected(t *testing.T) {
	fp := NewFakeProvider(ScrollSepolia.ID, addr1)
	fp.ConnectErr = &types.ProviderError{Code: types.CodeUserRejected, Message: "User rejected the request."}
	s := NewSession(fp, zerolog.Nop())
	defer s.Close()

	err := s.Connect(context.Background())
	require.ErrorIs(t, err, types.ErrUserRejected)
	require.Equal(t, Disconnected, s.State())
	_, ok := s.Account()
	require.False(t, ok)

	// re-armed: the same session can connect once the user accepts
	fp.ConnectErr = nil
	require.NoError(t, s.Connect(context.Background()))
	require.Equal(t, Connected, s.State())
}

func TestConnectProviderFailure(t *testing.T) {
	fp := NewFakeProvider(ScrollSepolia.ID, addr1)
	fp.ConnectErr = errors.New("rpc: connection refused")
	s := NewSession(fp, zerolog.Nop())
	defer s.Close()

	err := s.Connect(context.Background())
	require.Error(t, err)
	require.Equal(t, ConnError, s.State())
	_, ok := s.Account()
	require.False(t, ok)

	// a later attempt can still succeed
	fp.ConnectErr = nil
	require.NoError(t, s.Connect(context.Background()))
	require.Equal(t, Connected, s.State())
}

func TestAccountsChangedEvents(t *testing.T) {
	fp := NewFakeProvider(ScrollSepolia.ID, addr1)
	s := NewSession(fp, zerolog.Nop())
	defer s.Close()

	require.NoError(t, s.Connect(context.Background()))

	fp.Emit(Event{Kind: EventAccountsChanged, Accounts: []common.Address{addr2}})
	acc, ok := s.Account()
	require.True(t, ok)
	require.Equal(t, addr2, acc)
	require.Equal(t, Connected, s.State())

	fp.Emit(Event{Kind: EventAccountsChanged})
	_, ok = s.Account()
	require.False(t, ok)
	require.Equal(t, Disconnected, s.State())
}

func TestChainChangedSoftReset(t *testing.T) {
	fp := NewFakeProvider(ScrollSepolia.ID, addr1)
	s := NewSession(fp, zerolog.Nop())
	defer s.Close()

	var observed []uint64
	s.OnChainChanged(func(id uint64) { observed = append(observed, id) })

	require.NoError(t, s.Connect(context.Background()))

	fp.Emit(Event{Kind: EventChainChanged, ChainID: Scroll.ID})
	chain, ok := s.ChainID()
	require.True(t, ok)
	require.Equal(t, Scroll.ID, chain)

	// account survives a chain change
	acc, ok := s.Account()
	require.True(t, ok)
	require.Equal(t, addr1, acc)

	require.Equal(t, []uint64{ScrollSepolia.ID, Scroll.ID}, observed)
}

func TestCloseStopsIngestion(t *testing.T) {
	fp := NewFakeProvider(ScrollSepolia.ID, addr1)
	s := NewSession(fp, zerolog.Nop())
	require.NoError(t, s.Connect(context.Background()))

	s.Close()
	fp.Emit(Event{Kind: EventChainChanged, ChainID: Scroll.ID})
	chain, _ := s.ChainID()
	require.Equal(t, ScrollSepolia.ID, chain)
}
