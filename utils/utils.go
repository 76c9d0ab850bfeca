package utils

import (
	crand "crypto/rand"
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	gnark_hash "github.com/consensys/gnark-crypto/hash"
)

func DefaultHasher() hash.Hash {
	return MiMCHasher()
}

func DefaultHashSum(ins ...[]byte) []byte {
	return MiMCHash(ins...)
}

func MiMCHasher() hash.Hash {
	return gnark_hash.MIMC_BN254.New()
}

// MiMCHash hashes arbitrary byte inputs by splitting them into field-sized
// chunks. A full chunk may exceed the BN254 modulus, so it is reduced into a
// canonical fr.Element before being written to the hasher.
func MiMCHash(ins ...[]byte) []byte {
	hasher := MiMCHasher()

	blockSize := hasher.Size()

	hasher.Reset()
	for _, in := range ins {
		for i := 0; i < len(in); i += blockSize {
			end := i + blockSize
			if end > len(in) {
				end = len(in)
			}
			chunk := in[i:end]

			if len(chunk) == blockSize {
				var elem fr.Element
				elem.SetBytes(chunk)
				// canonical form
				chunk = elem.Marshal()
			}
			if _, err := hasher.Write(chunk); err != nil {
				panic(err)
			}
		}
	}
	return hasher.Sum(nil)
}

func RandBytes(n int) []byte {
	bz := make([]byte, n)
	if _, err := crand.Read(bz); err != nil {
		panic(err)
	}
	return bz
}
