package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/privycredit/privycredit/seal"
	"github.com/privycredit/privycredit/types"
	"github.com/privycredit/privycredit/utils"
)

var (
	owner = common.HexToAddress("0xAbC0000000000000000000000000000000000001")
	t0    = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "privycredit.db"), utils.RandBytes(32))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.SetClock(func() time.Time { return t0 })
	return s
}

func storedProof(factors types.Factors) *types.Proof {
	sealed := seal.Seal(owner, types.EpochOf(t0), factors)
	return &types.Proof{
		ID:           sealed.ID,
		Owner:        owner,
		Epoch:        types.EpochOf(t0),
		Factors:      factors,
		Commitment:   sealed.Commitment,
		AnchorTxHash: common.BytesToHash(utils.RandBytes(32)),
		CreatedAt:    t0,
		ExpiresAt:    t0.Add(types.ValidityWindow),
	}
}

func TestOpenRejectsBadKey(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "x.db"), []byte("short"))
	require.ErrorContains(t, err, "store key must be 32 bytes")
}

func TestUpsertUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u0, err := s.UpsertUser(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, "0xabc0000000000000000000000000000000000001", u0.WalletAddress)

	// same wallet resolves to the same identity
	u1, err := s.UpsertUser(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, u0.ID, u1.ID)

	got, err := s.GetUser(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, u0.ID, got.ID)

	_, err = s.GetUser(ctx, common.HexToAddress("0xdead000000000000000000000000000000000001"))
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestProofRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := storedProof(types.Factors{Stability: types.BandB, Inflows: types.BandA, Risk: types.BandC})
	require.NoError(t, s.PutProof(ctx, p))

	got, err := s.GetProof(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Factors, got.Factors)
	require.Equal(t, p.Owner, got.Owner)
	require.Equal(t, p.Commitment, got.Commitment)
	require.Equal(t, p.AnchorTxHash, got.AnchorTxHash)
	require.Equal(t, p.ExpiresAt, got.ExpiresAt)

	_, err = s.GetProof(ctx, common.BytesToHash(utils.RandBytes(32)))
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestFactorsAreEncryptedAtRest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := storedProof(types.Factors{Stability: types.BandA, Inflows: types.BandA, Risk: types.BandA})
	require.NoError(t, s.PutProof(ctx, p))

	var nonce, cipher []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT factors_nonce, factors_cipher FROM proofs WHERE id = ?`, p.ID.Hex(),
	).Scan(&nonce, &cipher)
	require.NoError(t, err)
	require.NotEqual(t, p.Factors.Bytes(), cipher)
	require.Greater(t, len(cipher), 3) // AEAD tag present

	// a different key cannot open the row
	_, err = decryptFactors(utils.RandBytes(32), nonce, cipher, p.ID.Bytes())
	require.Error(t, err)
}

func TestListProofs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p0 := storedProof(types.Factors{Stability: types.BandA, Inflows: types.BandA, Risk: types.BandA})
	p1 := storedProof(types.Factors{Stability: types.BandB, Inflows: types.BandB, Risk: types.BandC})
	p1.CreatedAt = t0.Add(time.Hour)
	require.NoError(t, s.PutProof(ctx, p0))
	require.NoError(t, s.PutProof(ctx, p1))

	got, err := s.ListProofs(ctx, owner)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, p1.ID, got[0].ID) // newest first
}

func TestGrantStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	grant := &types.ShareGrant{
		Token:     "pctesttoken",
		ProofID:   common.BytesToHash(utils.RandBytes(32)),
		CreatedAt: t0,
		ExpiresAt: t0.Add(types.GrantValidity),
	}
	require.NoError(t, s.Put(ctx, grant))

	got, err := s.Get(ctx, grant.Token)
	require.NoError(t, err)
	require.Equal(t, grant.ProofID, got.ProofID)
	require.Equal(t, grant.ExpiresAt, got.ExpiresAt)
	require.Nil(t, got.ConsumedAt)

	require.NoError(t, s.MarkConsumed(ctx, grant.Token, "coop-a", t0.Add(time.Hour)))
	got, err = s.Get(ctx, grant.Token)
	require.NoError(t, err)
	require.Equal(t, "coop-a", got.ConsumedBy)
	require.NotNil(t, got.ConsumedAt)

	_, err = s.Get(ctx, "pcnope")
	require.ErrorIs(t, err, types.ErrNotFound)
	require.ErrorIs(t, s.MarkConsumed(ctx, "pcnope", "x", t0), types.ErrNotFound)
}

func TestReminders(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.UpsertUser(ctx, owner)
	require.NoError(t, err)

	r, err := s.CreateReminder(ctx, u.ID, t0.Add(29*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, ReminderPending, r.Status)

	list, err := s.ListReminders(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, r.ID, list[0].ID)

	require.NoError(t, s.SetReminderStatus(ctx, r.ID, ReminderCancelled))
	list, err = s.ListReminders(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, ReminderCancelled, list[0].Status)
}
