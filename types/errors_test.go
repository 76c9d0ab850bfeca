package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyProviderCodes(t *testing.T) {
	err := Classify(&ProviderError{Code: CodeUserRejected, Message: "User rejected the request."})
	require.ErrorIs(t, err, ErrUserRejected)

	// 4902 is not a taxonomy value by itself; callers check it explicitly
	// before retrying with an add-chain request.
	unknown := &ProviderError{Code: CodeUnknownChain, Message: "Unrecognized chain ID"}
	require.True(t, IsUnknownChain(unknown))
	require.False(t, IsUnknownChain(errors.New("boom")))
}

func TestClassifyMessageSniffing(t *testing.T) {
	err := Classify(errors.New("MetaMask Tx Signature: User denied transaction signature"))
	require.ErrorIs(t, err, ErrUserRejected)

	err = Classify(errors.New("user rejected the request"))
	require.ErrorIs(t, err, ErrUserRejected)
}

func TestClassifyPassthrough(t *testing.T) {
	wrapped := fmt.Errorf("anchoring: %w", ErrLedgerWrite)
	require.ErrorIs(t, Classify(wrapped), ErrLedgerWrite)

	opaque := errors.New("execution reverted")
	require.Equal(t, opaque, Classify(opaque))

	require.NoError(t, Classify(nil))
}
