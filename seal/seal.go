package seal

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/privycredit/privycredit/types"
	"github.com/privycredit/privycredit/utils"
)

// NonceSize is the length of the freshness nonce bound into every
// commitment and proof id.
const NonceSize = 32

// Sealed is the one-way material produced for a proof: an id binding
// owner+epoch+nonce and a commitment binding the factor bands+nonce. Only
// bands ever enter the commitment preimage, never raw financial figures.
type Sealed struct {
	ID         common.Hash
	Commitment common.Hash
	Nonce      []byte
	ZKProof    []byte // optional consistency proof, empty unless a prover ran
}

// Commit computes the band commitment MiMC(stability, inflows, risk, nonce).
// Each band is padded to a full field element so the preimage layout matches
// the in-circuit hash.
func Commit(f types.Factors, nonce []byte) common.Hash {
	return common.BytesToHash(utils.MiMCHash(
		pad32(byte(f.Stability)),
		pad32(byte(f.Inflows)),
		pad32(byte(f.Risk)),
		nonce,
	))
}

// DeriveID computes the proof id MiMC(owner, epoch, nonce). The nonce keeps
// consecutive requests in the same epoch distinct; ids are never deduplicated.
func DeriveID(owner common.Address, epoch uint64, nonce []byte) common.Hash {
	var epochBz [32]byte
	for i := 0; i < 8; i++ {
		epochBz[31-i] = byte(epoch >> (8 * i))
	}
	var ownerBz [32]byte
	copy(ownerBz[12:], owner.Bytes())
	return common.BytesToHash(utils.MiMCHash(ownerBz[:], epochBz[:], nonce))
}

// Seal draws a fresh nonce and derives the id and commitment for one proof.
func Seal(owner common.Address, epoch uint64, f types.Factors) *Sealed {
	nonce := utils.RandBytes(NonceSize)
	return &Sealed{
		ID:         DeriveID(owner, epoch, nonce),
		Commitment: Commit(f, nonce),
		Nonce:      nonce,
	}
}

// Attest attaches a consistency proof for the sealed bands. CompileCircuit
// must have run first.
func (s *Sealed) Attest(f types.Factors) error {
	proof, err := ProveConsistency(s, f)
	if err != nil {
		return err
	}
	s.ZKProof = proof
	return nil
}

func pad32(b byte) []byte {
	bz := make([]byte, 32)
	bz[31] = b
	return bz
}
