package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusOfAllCombinations(t *testing.T) {
	bands := []Band{BandA, BandB, BandC}
	for _, s := range bands {
		for _, i := range bands {
			for _, r := range bands {
				f := Factors{Stability: s, Inflows: i, Risk: r}
				got := StatusOf(f)
				if s == BandA && i == BandA && r == BandA {
					require.Equal(t, StatusApto, got, "factors=%v", f)
				} else {
					require.Equal(t, StatusCasi, got, "factors=%v", f)
				}
			}
		}
	}
}

func TestParseBand(t *testing.T) {
	b, err := ParseBand("A")
	require.NoError(t, err)
	require.Equal(t, BandA, b)

	_, err = ParseBand("D")
	require.ErrorContains(t, err, "unknown band")

	_, err = ParseBand("a")
	require.Error(t, err)
}

func TestBandText(t *testing.T) {
	bz, err := BandB.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "B", string(bz))

	var b Band
	require.NoError(t, b.UnmarshalText([]byte("C")))
	require.Equal(t, BandC, b)

	_, err = Band(9).MarshalText()
	require.Error(t, err)
}
