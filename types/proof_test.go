package types

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"

	"github.com/privycredit/privycredit/utils"
)

func newTestProof(factors Factors, createdAt time.Time) *Proof {
	return &Proof{
		ID:         common.BytesToHash(utils.RandBytes(32)),
		Owner:      common.BytesToAddress(utils.RandBytes(20)),
		Epoch:      EpochOf(createdAt),
		Factors:    factors,
		Commitment: common.BytesToHash(utils.RandBytes(32)),
		CreatedAt:  createdAt,
		ExpiresAt:  createdAt.Add(ValidityWindow),
	}
}

func TestProofValidityWindow(t *testing.T) {
	createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	combos := []Factors{
		{BandA, BandA, BandA},
		{BandB, BandA, BandC},
		{BandC, BandC, BandC},
	}
	for _, f := range combos {
		p := newTestProof(f, createdAt)
		require.Equal(t, ValidityWindow, p.ExpiresAt.Sub(p.CreatedAt))
		require.True(t, p.ExpiresAt.After(p.CreatedAt))
	}
}

func TestProofExpiry(t *testing.T) {
	createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := newTestProof(Factors{BandA, BandA, BandA}, createdAt)

	require.False(t, p.IsExpired(createdAt))
	require.False(t, p.IsExpired(createdAt.Add(ValidityWindow)))
	require.True(t, p.IsExpired(createdAt.Add(ValidityWindow+time.Second)))
}

func TestProofRLPRoundTrip(t *testing.T) {
	createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := newTestProof(Factors{BandA, BandB, BandC}, createdAt)
	p.AnchorTxHash = common.BytesToHash(utils.RandBytes(32))

	var decoded Proof
	require.NoError(t, rlp.DecodeBytes(p.Bytes(), &decoded))
	require.Equal(t, *p, decoded)
}

func TestProofRLPRejectsMalformedBands(t *testing.T) {
	createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := newTestProof(Factors{BandA, BandB, BandC}, createdAt)

	var decoded Proof
	require.NoError(t, rlp.DecodeBytes(p.Bytes(), &decoded))
	require.Equal(t, p.Factors, decoded.Factors)
	require.Equal(t, p.ID, decoded.ID)

	// tamper: out-of-range band value
	p.Factors.Risk = Band(7)
	err := rlp.DecodeBytes(p.Bytes(), &decoded)
	require.ErrorContains(t, err, "malformed factor bands")
}

func TestEpochOf(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 0, 0, 1, 0, time.UTC)
	t1 := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 2, 0, 0, 1, 0, time.UTC)
	require.Equal(t, EpochOf(t0), EpochOf(t1))
	require.Equal(t, EpochOf(t0)+1, EpochOf(t2))
}

func TestTruncateAddress(t *testing.T) {
	addr := common.HexToAddress("0x12345678901234567890123456789012345678ab")
	disp := TruncateAddress(addr)
	require.Equal(t, "0x1234…78ab", disp)
	require.Len(t, []rune(disp), 11)
}
