package types

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// ValidityWindow is the fixed lifetime of a proof after creation.
const ValidityWindow = 30 * 24 * time.Hour

// EpochOf buckets a creation time into day epochs.
func EpochOf(t time.Time) uint64 {
	return uint64(t.UnixMilli() / (24 * 60 * 60 * 1000))
}

// Proof is the sealed creditworthiness record for one wallet. Factors are
// fixed at creation; a proof is never edited, only superseded by a new one.
type Proof struct {
	ID           common.Hash
	Owner        common.Address
	Epoch        uint64
	Factors      Factors
	Commitment   common.Hash
	AnchorTxHash common.Hash // zero when the proof was not anchored
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

func (p *Proof) Status() ProofStatus {
	return StatusOf(p.Factors)
}

func (p *Proof) Anchored() bool {
	return p.AnchorTxHash != (common.Hash{})
}

// IsExpired checks p against now. All comparisons use UTC.
func (p *Proof) IsExpired(now time.Time) bool {
	return now.UTC().After(p.ExpiresAt.UTC())
}

// Bytes returns the RLP-encoded representation of the Proof as a byte slice.
// It panics if the encoding fails.
func (p *Proof) Bytes() []byte {
	b, err := rlp.EncodeToBytes(p)
	if err != nil {
		panic(fmt.Sprintf("failed to RLP encode Proof: %v", err))
	}
	return b
}

var (
	_ rlp.Encoder = (*Proof)(nil)
	_ rlp.Decoder = (*Proof)(nil)
)

// EncodeRLP implements the rlp.Encoder interface.
func (p *Proof) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []interface{}{
		p.ID,
		p.Owner,
		p.Epoch,
		p.Factors.Bytes(),
		p.Commitment,
		p.AnchorTxHash,
		uint64(p.CreatedAt.UTC().Unix()),
		uint64(p.ExpiresAt.UTC().Unix()),
	})
}

// DecodeRLP implements the rlp.Decoder interface.
func (p *Proof) DecodeRLP(s *rlp.Stream) error {
	var temp struct {
		ID           common.Hash
		Owner        common.Address
		Epoch        uint64
		Factors      []byte
		Commitment   common.Hash
		AnchorTxHash common.Hash
		CreatedAt    uint64
		ExpiresAt    uint64
	}
	if err := s.Decode(&temp); err != nil {
		return err
	}
	if len(temp.Factors) != 3 {
		return fmt.Errorf("malformed factor bands: got %d bytes", len(temp.Factors))
	}
	factors := Factors{
		Stability: Band(temp.Factors[0]),
		Inflows:   Band(temp.Factors[1]),
		Risk:      Band(temp.Factors[2]),
	}
	if !factors.Valid() {
		return fmt.Errorf("malformed factor bands: %x", temp.Factors)
	}

	p.ID = temp.ID
	p.Owner = temp.Owner
	p.Epoch = temp.Epoch
	p.Factors = factors
	p.Commitment = temp.Commitment
	p.AnchorTxHash = temp.AnchorTxHash
	p.CreatedAt = time.Unix(int64(temp.CreatedAt), 0).UTC()
	p.ExpiresAt = time.Unix(int64(temp.ExpiresAt), 0).UTC()
	return nil
}

// TruncateAddress renders an address in its public display form,
// e.g. 0x1234…abcd. Verifiers never see more of the owner's identity.
// Lowercase hex, not the checksummed form: the display string must be stable.
func TruncateAddress(addr common.Address) string {
	hex := strings.ToLower(addr.Hex())
	return hex[:6] + "…" + hex[len(hex)-4:]
}
