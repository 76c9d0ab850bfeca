package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// ChainParams is the fixed registration payload for a network, handed to the
// provider when a switch target is unknown to it.
type ChainParams struct {
	ID          uint64
	Name        string
	Currency    string
	RPCURL      string
	ExplorerURL string
}

// The networks this system knows how to register with a wallet.
var (
	ScrollSepolia = ChainParams{
		ID:          534351,
		Name:        "Scroll Sepolia",
		Currency:    "ETH",
		RPCURL:      "https://sepolia-rpc.scroll.io",
		ExplorerURL: "https://sepolia.scrollscan.com",
	}
	Scroll = ChainParams{
		ID:          534352,
		Name:        "Scroll",
		Currency:    "ETH",
		RPCURL:      "https://rpc.scroll.io",
		ExplorerURL: "https://scrollscan.com",
	}
)

type EventKind int

const (
	EventAccountsChanged EventKind = iota
	EventChainChanged
)

// Event is a provider-pushed notification: the user switched accounts or
// chains in their wallet UI.
type Event struct {
	Kind     EventKind
	Accounts []common.Address
	ChainID  uint64
}

// TxRequest is a transaction to be signed and sent by the wallet. The
// provider owns key material; callers only supply calldata.
type TxRequest struct {
	From common.Address
	To   common.Address
	Data []byte
}

// Provider is the capability interface over an injected or connector-mediated
// wallet. Every blocking call may suspend on a human prompt in an external
// wallet UI and must honor ctx cancellation by abandoning the wait; the
// prompt itself cannot be cancelled remotely.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	AddChain(ctx context.Context, params ChainParams) error
	SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error)

	// Subscribe registers fn for provider-pushed events and returns an
	// unsubscribe func. fn may be invoked from the provider's own goroutine.
	Subscribe(fn func(Event)) (unsubscribe func())
}
