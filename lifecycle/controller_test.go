package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/privycredit/privycredit/ledger"
	"github.com/privycredit/privycredit/network"
	"github.com/privycredit/privycredit/types"
	"github.com/privycredit/privycredit/wallet"
)

var (
	owner    = common.HexToAddress("0xabc0000000000000000000000000000000000001")
	otherAcc = common.HexToAddress("0xabc0000000000000000000000000000000000002")
	fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

// anchorStub fails submissions on demand, standing in for a declined
// signature or an RPC failure at the ledger boundary.
type anchorStub struct {
	*ledger.Memory
	submitErr error
}

func (a *anchorStub) SubmitProof(ctx context.Context, from common.Address, rec ledger.Record) (common.Hash, error) {
	if a.submitErr != nil {
		return common.Hash{}, a.submitErr
	}
	return a.Memory.SubmitProof(ctx, from, rec)
}

type fixture struct {
	provider   *wallet.FakeProvider
	session    *wallet.Session
	guard      *network.Guard
	summarizer *Fixed
	anchor     *anchorStub
	ctrl       *Controller
}

func newFixture(t *testing.T, anchored bool) *fixture {
	t.Helper()
	fp := wallet.NewFakeProvider(wallet.ScrollSepolia.ID, owner)
	s := wallet.NewSession(fp, zerolog.Nop())
	t.Cleanup(s.Close)
	g := network.NewGuard(s, fp, wallet.ScrollSepolia, zerolog.Nop())

	sum := &Fixed{F: types.Factors{Stability: types.BandA, Inflows: types.BandA, Risk: types.BandA}}
	var anchor *anchorStub
	var l ledger.Ledger
	if anchored {
		anchor = &anchorStub{Memory: ledger.NewMemory()}
		l = anchor
	}
	ctrl := NewController(s, g, sum, l, zerolog.Nop())
	ctrl.SetClock(func() time.Time { return fixedNow })
	return &fixture{provider: fp, session: s, guard: g, summarizer: sum, anchor: anchor, ctrl: ctrl}
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, f.session.Connect(context.Background()))
}

func TestGenerateApto(t *testing.T) {
	f := newFixture(t, true)
	f.connect(t)

	p, err := f.ctrl.Generate(context.Background())
	require.NoError(t, err)
	require.Equal(t, Complete, f.ctrl.Phase())

	require.Equal(t, types.StatusApto, p.Status())
	require.Equal(t, owner, p.Owner)
	require.Equal(t, fixedNow, p.CreatedAt)
	require.Equal(t, fixedNow.Add(types.ValidityWindow), p.ExpiresAt)
	require.True(t, p.Anchored())

	sum, err := f.anchor.GetProofSummary(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Commitment, sum.Commitment)
	require.Equal(t, owner, sum.Owner)
}

func TestGenerateCasi(t *testing.T) {
	f := newFixture(t, true)
	f.connect(t)
	f.summarizer.F = types.Factors{Stability: types.BandB, Inflows: types.BandA, Risk: types.BandC}

	p, err := f.ctrl.Generate(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.StatusCasi, p.Status())
	require.Equal(t, fixedNow.Add(types.ValidityWindow), p.ExpiresAt)
}

func TestGenerateWithoutWallet(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.ctrl.Generate(context.Background())
	require.ErrorIs(t, err, types.ErrWalletNotReady)
	require.Equal(t, Failed, f.ctrl.Phase())
	require.ErrorIs(t, f.ctrl.LastErr(), types.ErrWalletNotReady)
}

func TestGenerateOnWrongNetwork(t *testing.T) {
	f := newFixture(t, true)
	f.connect(t)
	f.provider.Emit(wallet.Event{Kind: wallet.EventChainChanged, ChainID: 1})

	_, err := f.ctrl.Generate(context.Background())
	require.ErrorIs(t, err, types.ErrWrongNetwork)
	require.Equal(t, Failed, f.ctrl.Phase())
}

func TestDisconnectDuringCollecting(t *testing.T) {
	f := newFixture(t, true)
	f.connect(t)
	f.summarizer.Hook = func() { f.session.Disconnect() }

	_, err := f.ctrl.Generate(context.Background())
	require.ErrorIs(t, err, types.ErrWalletNotReady)
	require.Equal(t, Failed, f.ctrl.Phase())
	require.NotEqual(t, Complete, f.ctrl.Phase())
}

func TestAccountChangeDuringCollecting(t *testing.T) {
	f := newFixture(t, true)
	f.connect(t)
	f.summarizer.Hook = func() {
		f.provider.Emit(wallet.Event{Kind: wallet.EventAccountsChanged, Accounts: []common.Address{otherAcc}})
	}

	_, err := f.ctrl.Generate(context.Background())
	require.ErrorIs(t, err, types.ErrAccountChanged)
	require.Equal(t, Failed, f.ctrl.Phase())
}

func TestAnchoringRejectionIsRecoverable(t *testing.T) {
	f := newFixture(t, true)
	f.connect(t)
	f.anchor.submitErr = &types.ProviderError{Code: types.CodeUserRejected, Message: "User denied transaction signature."}

	_, err := f.ctrl.Generate(context.Background())
	require.ErrorIs(t, err, types.ErrUserRejected)
	require.NotErrorIs(t, err, types.ErrLedgerWrite)

	// fresh user-initiated attempt succeeds once the signature is accepted
	f.anchor.submitErr = nil
	p, err := f.ctrl.Generate(context.Background())
	require.NoError(t, err)
	require.Equal(t, Complete, f.ctrl.Phase())
	require.True(t, p.Anchored())
}

func TestAnchoringRPCFailure(t *testing.T) {
	f := newFixture(t, true)
	f.connect(t)
	f.anchor.submitErr = errors.New("execution reverted: EpochClosed")

	_, err := f.ctrl.Generate(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, types.ErrUserRejected)
	require.Equal(t, Failed, f.ctrl.Phase())
}

func TestGenerateWithoutAnchor(t *testing.T) {
	f := newFixture(t, false)
	f.connect(t)

	p, err := f.ctrl.Generate(context.Background())
	require.NoError(t, err)
	require.False(t, p.Anchored())
	require.Equal(t, Complete, f.ctrl.Phase())
}

func TestConsecutiveRunsProduceDistinctProofs(t *testing.T) {
	f := newFixture(t, true)
	f.connect(t)

	p0, err := f.ctrl.Generate(context.Background())
	require.NoError(t, err)
	p1, err := f.ctrl.Generate(context.Background())
	require.NoError(t, err)

	// same owner, same epoch: ids embed a fresh nonce and never collide
	require.Equal(t, p0.Epoch, p1.Epoch)
	require.NotEqual(t, p0.ID, p1.ID)
}
