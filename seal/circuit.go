package seal

import (
	"bytes"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/privycredit/privycredit/types"
)

var (
	R1CS         constraint.ConstraintSystem
	ProvingKey   groth16.ProvingKey
	VerifyingKey groth16.VerifyingKey
)

// BandCircuit proves that the public band values are the ones bound into the
// public commitment, without revealing the nonce. A verifier holding the
// anchored commitment can check band consistency independently.
type BandCircuit struct {
	Nonce      frontend.Variable
	Stability  frontend.Variable `gnark:",public"`
	Inflows    frontend.Variable `gnark:",public"`
	Risk       frontend.Variable `gnark:",public"`
	Commitment frontend.Variable `gnark:",public"`
}

func (cc *BandCircuit) Define(api frontend.API) error {
	// bands are ordinals in [1,3]
	for _, band := range []frontend.Variable{cc.Stability, cc.Inflows, cc.Risk} {
		api.AssertIsDifferent(band, 0)
		api.AssertIsLessOrEqual(band, 3)
	}

	hFunc, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	hFunc.Write(cc.Stability, cc.Inflows, cc.Risk, cc.Nonce)
	api.AssertIsEqual(hFunc.Sum(), cc.Commitment)
	return nil
}

func CompileCircuit() error {
	var err error
	var cc BandCircuit

	if R1CS, err = frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &cc); err != nil {
		return err
	}
	if ProvingKey, VerifyingKey, err = groth16.Setup(R1CS); err != nil {
		return err
	}
	return nil
}

func assign(f types.Factors, commitment common.Hash) BandCircuit {
	return BandCircuit{
		Stability:  int(f.Stability),
		Inflows:    int(f.Inflows),
		Risk:       int(f.Risk),
		Commitment: commitment.Bytes(),
	}
}

// ProveConsistency generates a consistency proof for a sealed record.
// CompileCircuit must have run first.
func ProveConsistency(sealed *Sealed, f types.Factors) ([]byte, error) {
	assignment := assign(f, sealed.Commitment)
	assignment.Nonce = sealed.Nonce

	wtn, err := frontend.NewWitness(&assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	proof, err := groth16.Prove(
		R1CS,
		ProvingKey,
		wtn,
		backend.WithSolverOptions(
			solver.WithLogger(gnarkLogger),
		),
	)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(nil)
	if _, err := proof.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// VerifyConsistency checks a consistency proof against the public bands and
// commitment.
func VerifyConsistency(proofBytes []byte, f types.Factors, commitment common.Hash) error {
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewBuffer(proofBytes)); err != nil {
		return err
	}

	assignment := assign(f, commitment)
	pubWtn, err := frontend.NewWitness(&assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return err
	}
	return groth16.Verify(proof, VerifyingKey, pubWtn)
}

var gnarkLogger = zerolog.New(os.Stdout).Level(zerolog.WarnLevel).With().Timestamp().Logger()
