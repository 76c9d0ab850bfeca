package types

import "fmt"

// Band is an ordinal risk/behavior category. Only the band is ever shared or
// anchored, never the raw figures it was derived from.
type Band byte

const (
	BandA Band = 1
	BandB Band = 2
	BandC Band = 3
)

func (b Band) String() string {
	switch b {
	case BandA:
		return "A"
	case BandB:
		return "B"
	case BandC:
		return "C"
	}
	return fmt.Sprintf("Band(%d)", byte(b))
}

func (b Band) Valid() bool {
	return b >= BandA && b <= BandC
}

func ParseBand(s string) (Band, error) {
	switch s {
	case "A":
		return BandA, nil
	case "B":
		return BandB, nil
	case "C":
		return BandC, nil
	}
	return 0, fmt.Errorf("unknown band %q", s)
}

func (b Band) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid band %d", byte(b))
	}
	return []byte(b.String()), nil
}

func (b *Band) UnmarshalText(text []byte) error {
	v, err := ParseBand(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Factors holds one band per scored factor.
type Factors struct {
	Stability Band `json:"stability"`
	Inflows   Band `json:"inflows"`
	Risk      Band `json:"risk"`
}

func (f Factors) Valid() bool {
	return f.Stability.Valid() && f.Inflows.Valid() && f.Risk.Valid()
}

func (f Factors) Bytes() []byte {
	return []byte{byte(f.Stability), byte(f.Inflows), byte(f.Risk)}
}

// ProofStatus is derived from the factor bands and is never stored
// independently of them.
type ProofStatus string

const (
	StatusApto   ProofStatus = "apto"
	StatusCasi   ProofStatus = "casi"
	StatusNoApto ProofStatus = "no-apto"
)

// StatusOf returns Apto iff every factor sits in band A.
func StatusOf(f Factors) ProofStatus {
	if f.Stability == BandA && f.Inflows == BandA && f.Risk == BandA {
		return StatusApto
	}
	return StatusCasi
}
