package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/privycredit/privycredit/types"
	"github.com/privycredit/privycredit/utils"
)

// FakeProvider is an in-memory Provider used by tests across packages. It
// reports configurable accounts and chains, simulates the 4902 unknown-chain
// handshake, and lets tests push account/chain events.
type FakeProvider struct {
	mtx sync.Mutex

	Accounts    []common.Address
	Chain       uint64
	KnownChains map[uint64]bool

	ConnectErr error
	SwitchErr  error
	AddErr     error
	SendErr    error

	switchCalls int
	addCalls    int
	sentTxs     []TxRequest

	nextSub int
	subs    map[int]func(Event)
}

var _ Provider = (*FakeProvider)(nil)

func NewFakeProvider(chain uint64, accounts ...common.Address) *FakeProvider {
	return &FakeProvider{
		Accounts:    accounts,
		Chain:       chain,
		KnownChains: map[uint64]bool{chain: true},
		subs:        map[int]func(Event){},
	}
}

func (f *FakeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.ConnectErr != nil {
		return nil, f.ConnectErr
	}
	return append([]common.Address(nil), f.Accounts...), nil
}

func (f *FakeProvider) ChainID(ctx context.Context) (uint64, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.Chain, nil
}

func (f *FakeProvider) SwitchChain(ctx context.Context, chainID uint64) error {
	f.mtx.Lock()
	f.switchCalls++
	if f.SwitchErr != nil {
		err := f.SwitchErr
		f.mtx.Unlock()
		return err
	}
	if f.KnownChains != nil && !f.KnownChains[chainID] {
		f.mtx.Unlock()
		return &types.ProviderError{
			Code:    types.CodeUnknownChain,
			Message: fmt.Sprintf("Unrecognized chain ID %d", chainID),
		}
	}
	f.Chain = chainID
	f.mtx.Unlock()
	f.Emit(Event{Kind: EventChainChanged, ChainID: chainID})
	return nil
}

func (f *FakeProvider) AddChain(ctx context.Context, params ChainParams) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.addCalls++
	if f.AddErr != nil {
		return f.AddErr
	}
	if f.KnownChains == nil {
		f.KnownChains = map[uint64]bool{}
	}
	f.KnownChains[params.ID] = true
	return nil
}

func (f *FakeProvider) SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.SendErr != nil {
		return common.Hash{}, f.SendErr
	}
	f.sentTxs = append(f.sentTxs, tx)
	return common.BytesToHash(utils.RandBytes(32)), nil
}

func (f *FakeProvider) Subscribe(fn func(Event)) func() {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.subs == nil {
		f.subs = map[int]func(Event){}
	}
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	return func() {
		f.mtx.Lock()
		defer f.mtx.Unlock()
		delete(f.subs, id)
	}
}

// Emit delivers an event to all subscribers, synchronously.
func (f *FakeProvider) Emit(ev Event) {
	f.mtx.Lock()
	fns := make([]func(Event), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mtx.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (f *FakeProvider) SwitchCalls() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.switchCalls
}

func (f *FakeProvider) AddCalls() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.addCalls
}

func (f *FakeProvider) SentTxs() []TxRequest {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return append([]TxRequest(nil), f.sentTxs...)
}
