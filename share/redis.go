package share

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/privycredit/privycredit/types"
)

// RedisGrants is a GrantStore over redis: one JSON value per token with a
// TTL matching the grant expiry, so abandoned grants clean themselves up.
type RedisGrants struct {
	client *redis.Client
	now    func() time.Time
}

var _ GrantStore = (*RedisGrants)(nil)

func NewRedisGrants(addr, password string, db int, now func() time.Time) (*RedisGrants, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if now == nil {
		now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisGrants{client: client, now: now}, nil
}

func grantKey(token string) string {
	return "grant:" + token
}

func (r *RedisGrants) Put(ctx context.Context, grant *types.ShareGrant) error {
	bz, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("encode grant: %w", err)
	}
	// keep the key a little past expiry so late resolutions still observe
	// Expired instead of NotFound
	ttl := grant.ExpiresAt.Sub(r.now().UTC()) + time.Hour
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := r.client.Set(ctx, grantKey(grant.Token), bz, ttl).Err(); err != nil {
		return fmt.Errorf("store grant: %w", err)
	}
	return nil
}

func (r *RedisGrants) Get(ctx context.Context, token string) (*types.ShareGrant, error) {
	bz, err := r.client.Get(ctx, grantKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load grant: %w", err)
	}
	var grant types.ShareGrant
	if err := json.Unmarshal(bz, &grant); err != nil {
		return nil, fmt.Errorf("decode grant: %w", err)
	}
	return &grant, nil
}

func (r *RedisGrants) MarkConsumed(ctx context.Context, token, verifier string, at time.Time) error {
	grant, err := r.Get(ctx, token)
	if err != nil {
		return err
	}
	grant.ConsumedBy = verifier
	at = at.UTC()
	grant.ConsumedAt = &at

	bz, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("encode grant: %w", err)
	}
	return r.client.Set(ctx, grantKey(token), bz, redis.KeepTTL).Err()
}
