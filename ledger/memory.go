package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/privycredit/privycredit/types"
	"github.com/privycredit/privycredit/utils"
)

// entry mirrors the contract's storage layout: word-sized fields the way the
// EVM would hold them.
type entry struct {
	owner      common.Address
	epoch      *uint256.Int
	commitment common.Hash
	stability  types.Band
	inflows    types.Band
	risk       types.Band
	valid      bool
	createdAt  *uint256.Int // unix seconds
}

type submission struct {
	id common.Hash
	tx common.Hash
}

// Memory is an in-process Ledger used in tests and anchorless deployments.
type Memory struct {
	mtx     sync.RWMutex
	entries map[common.Hash]*entry
	log     []submission
	now     func() time.Time
}

var _ Ledger = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		entries: map[common.Hash]*entry{},
		now:     time.Now,
	}
}

// SetClock overrides the ledger's time source. Test use only.
func (m *Memory) SetClock(now func() time.Time) {
	m.now = now
}

func (m *Memory) SubmitProof(ctx context.Context, from common.Address, rec Record) (common.Hash, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	tx := common.BytesToHash(utils.RandBytes(32))
	m.entries[rec.ID] = &entry{
		owner:      from,
		epoch:      uint256.NewInt(rec.Epoch),
		commitment: rec.Commitment,
		stability:  rec.Stability,
		inflows:    rec.Inflows,
		risk:       rec.Risk,
		valid:      true,
		createdAt:  uint256.NewInt(uint64(m.now().UTC().Unix())),
	}
	m.log = append(m.log, submission{id: rec.ID, tx: tx})
	return tx, nil
}

func (m *Memory) GetProofSummary(ctx context.Context, id common.Hash) (*Summary, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &Summary{
		Owner:      e.owner,
		Epoch:      e.epoch.Uint64(),
		Commitment: e.commitment,
		Stability:  e.stability,
		Inflows:    e.inflows,
		Risk:       e.risk,
		Valid:      e.valid,
		CreatedAt:  time.Unix(int64(e.createdAt.Uint64()), 0).UTC(),
	}, nil
}

func (m *Memory) FindSubmissionTx(ctx context.Context, id common.Hash) (common.Hash, bool, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	// latest submission wins, matching the log-scan behavior of the RPC ledger
	for i := len(m.log) - 1; i >= 0; i-- {
		if m.log[i].id == id {
			return m.log[i].tx, true, nil
		}
	}
	return common.Hash{}, false, nil
}

// Revoke marks an anchored proof invalid. The on-chain contract exposes this
// to its owner; here it backs revocation tests and local demos.
func (m *Memory) Revoke(id common.Hash) bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return false
	}
	e.valid = false
	return true
}
