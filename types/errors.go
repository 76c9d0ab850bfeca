package types

import (
	"errors"
	"fmt"
	"strings"
)

// Failure taxonomy. Every wallet/ledger error is translated into one of these
// at the boundary where the external call was made; raw provider errors never
// reach callers unclassified.
var (
	ErrNoProvider     = errors.New("no wallet provider available")
	ErrUserRejected   = errors.New("request rejected by user")
	ErrWrongNetwork   = errors.New("wallet is on the wrong network")
	ErrWalletNotReady = errors.New("wallet is not connected")
	ErrAccountChanged = errors.New("account changed during operation")
	ErrSwitchRejected = errors.New("network switch rejected")
	ErrLedgerWrite    = errors.New("ledger write failed")
	ErrNotFound       = errors.New("proof not found")
	ErrExpired        = errors.New("proof or grant expired")
	ErrRevoked        = errors.New("proof revoked")
)

// Provider error codes defined by EIP-1193/EIP-3085 that the classifier
// understands.
const (
	CodeUserRejected = 4001
	CodeUnknownChain = 4902
)

// ProviderError carries the numeric code reported by an injected wallet
// provider alongside its message.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// IsUnknownChain reports whether err is the provider telling us the requested
// chain has never been registered with it.
func IsUnknownChain(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == CodeUnknownChain
}

// Classify maps an arbitrary provider/RPC error onto the taxonomy. Errors that
// already belong to the taxonomy pass through unchanged. Message sniffing for
// "user rejected"/"user denied" is the last resort for providers that do not
// report code 4001.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		ErrNoProvider, ErrUserRejected, ErrWrongNetwork, ErrWalletNotReady,
		ErrAccountChanged, ErrSwitchRejected, ErrLedgerWrite,
		ErrNotFound, ErrExpired, ErrRevoked,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Code {
		case CodeUserRejected:
			return fmt.Errorf("%w: %s", ErrUserRejected, pe.Message)
		}
	}

	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "user rejected") || strings.Contains(lower, "user denied") {
		return fmt.Errorf("%w: %v", ErrUserRejected, err)
	}

	return err
}
