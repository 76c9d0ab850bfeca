package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/privycredit/privycredit/types"
	"github.com/privycredit/privycredit/utils"
)

var owner = common.HexToAddress("0xabc0000000000000000000000000000000000001")

func newRecord() Record {
	return Record{
		ID:         common.BytesToHash(utils.RandBytes(32)),
		Epoch:      20123,
		Commitment: common.BytesToHash(utils.RandBytes(32)),
		Stability:  types.BandA,
		Inflows:    types.BandB,
		Risk:       types.BandA,
	}
}

func TestSubmitAndRead(t *testing.T) {
	m := NewMemory()
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return fixed })

	rec := newRecord()
	tx, err := m.SubmitProof(context.Background(), owner, rec)
	require.NoError(t, err)
	require.NotEqual(t, common.Hash{}, tx)

	sum, err := m.GetProofSummary(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, owner, sum.Owner)
	require.Equal(t, rec.Epoch, sum.Epoch)
	require.Equal(t, rec.Commitment, sum.Commitment)
	require.Equal(t, rec.Stability, sum.Stability)
	require.True(t, sum.Valid)
	require.Equal(t, fixed, sum.CreatedAt)
}

func TestReadUnknownProof(t *testing.T) {
	m := NewMemory()
	_, err := m.GetProofSummary(context.Background(), common.BytesToHash(utils.RandBytes(32)))
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestRevoke(t *testing.T) {
	m := NewMemory()
	rec := newRecord()
	_, err := m.SubmitProof(context.Background(), owner, rec)
	require.NoError(t, err)

	require.True(t, m.Revoke(rec.ID))
	sum, err := m.GetProofSummary(context.Background(), rec.ID)
	require.NoError(t, err)
	require.False(t, sum.Valid)

	require.False(t, m.Revoke(common.BytesToHash(utils.RandBytes(32))))
}

func TestFindSubmissionTx(t *testing.T) {
	m := NewMemory()
	rec := newRecord()

	_, ok, err := m.FindSubmissionTx(context.Background(), rec.ID)
	require.NoError(t, err)
	require.False(t, ok)

	tx, err := m.SubmitProof(context.Background(), owner, rec)
	require.NoError(t, err)

	found, ok, err := m.FindSubmissionTx(context.Background(), rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tx, found)
}
