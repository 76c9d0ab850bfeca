package share

import (
	"context"
	"sync"
	"time"

	"github.com/privycredit/privycredit/types"
)

// GrantStore persists share grants keyed by token. Implementations must
// return types.ErrNotFound for unknown tokens; expiry is enforced by the
// resolver, not the store.
type GrantStore interface {
	Put(ctx context.Context, grant *types.ShareGrant) error
	Get(ctx context.Context, token string) (*types.ShareGrant, error)
	MarkConsumed(ctx context.Context, token, verifier string, at time.Time) error
}

// MemoryGrants is the in-process GrantStore.
type MemoryGrants struct {
	mtx    sync.RWMutex
	grants map[string]*types.ShareGrant
}

var _ GrantStore = (*MemoryGrants)(nil)

func NewMemoryGrants() *MemoryGrants {
	return &MemoryGrants{grants: map[string]*types.ShareGrant{}}
}

func (m *MemoryGrants) Put(ctx context.Context, grant *types.ShareGrant) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	cp := *grant
	m.grants[grant.Token] = &cp
	return nil
}

func (m *MemoryGrants) Get(ctx context.Context, token string) (*types.ShareGrant, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	g, ok := m.grants[token]
	if !ok {
		return nil, types.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *MemoryGrants) MarkConsumed(ctx context.Context, token, verifier string, at time.Time) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	g, ok := m.grants[token]
	if !ok {
		return types.ErrNotFound
	}
	g.ConsumedBy = verifier
	at = at.UTC()
	g.ConsumedAt = &at
	return nil
}
