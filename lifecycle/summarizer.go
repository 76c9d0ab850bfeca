package lifecycle

import (
	"context"
	"math/rand"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/privycredit/privycredit/types"
)

// Summarizer condenses a wallet's on-chain history into three factor bands.
// Only bands ever leave this interface; the raw signals stay behind it.
type Summarizer interface {
	Summarize(ctx context.Context, owner common.Address) (types.Factors, error)
}

// Demo is the placeholder summarizer: it picks one of two canned band sets at
// random, standing in for a real analysis module until one exists. Any real
// implementation replaces it behind the same interface without touching the
// rest of the lifecycle.
type Demo struct {
	mtx sync.Mutex
	rng *rand.Rand
}

var _ Summarizer = (*Demo)(nil)

func NewDemo(seed int64) *Demo {
	return &Demo{rng: rand.New(rand.NewSource(seed))}
}

func (d *Demo) Summarize(ctx context.Context, owner common.Address) (types.Factors, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if d.rng.Float64() > 0.5 {
		return types.Factors{Stability: types.BandA, Inflows: types.BandA, Risk: types.BandA}, nil
	}
	return types.Factors{Stability: types.BandB, Inflows: types.BandB, Risk: types.BandC}, nil
}

// Fixed returns the same bands on every call. Test use.
type Fixed struct {
	F   types.Factors
	Err error

	// Hook runs inside Summarize before returning, letting tests race
	// session changes against an in-flight run.
	Hook func()
}

var _ Summarizer = (*Fixed)(nil)

func (f *Fixed) Summarize(ctx context.Context, owner common.Address) (types.Factors, error) {
	if f.Hook != nil {
		f.Hook()
	}
	return f.F, f.Err
}
