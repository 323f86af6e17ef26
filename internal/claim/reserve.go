package claim

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flashdealz/flash-deal-engine/internal/deals"
	"github.com/flashdealz/flash-deal-engine/internal/redisx"
)

type ReserveOutcome int

const (
	Reserved ReserveOutcome = iota
	AlreadyReserved
	SoldOut
)

// reserveScript adjudicates one claim attempt in a single indivisible unit.
// Ordering matters: the dedup check runs before the decrement, otherwise a
// repeat claimer would burn a unit of inventory on the way to rejection.
// A missing counter key means the deal was never projected into cache (or
// was evicted); the caller hydrates and re-runs.
var reserveScript = redis.NewScript(`
	local inventory_key = KEYS[1]
	local claimed_key = KEYS[2]
	local user_id = ARGV[1]

	if redis.call('EXISTS', inventory_key) == 0 then
		return -2
	end

	if redis.call('SISMEMBER', claimed_key, user_id) == 1 then
		return -1
	end

	local remaining = redis.call('DECR', inventory_key)
	if remaining < 0 then
		redis.call('INCR', inventory_key)
		return 0
	end

	redis.call('SADD', claimed_key, user_id)
	return 1
`)

// releaseScript is the compensation: put the unit back and forget the
// reservation, in one indivisible unit so a half-applied rollback cannot
// occur. The counter is only incremented while it still exists; if it
// expired with the deal there is nothing left to restore.
var releaseScript = redis.NewScript(`
	local inventory_key = KEYS[1]
	local claimed_key = KEYS[2]
	local user_id = ARGV[1]

	if redis.call('EXISTS', inventory_key) == 1 then
		redis.call('INCR', inventory_key)
	end
	redis.call('SREM', claimed_key, user_id)
	return 1
`)

// InventoryLoader reads durable inventory state for lazy hydration.
type InventoryLoader interface {
	LoadInventory(ctx context.Context, dealID string) (remaining int, claimants []string, validUntil time.Time, err error)
}

// RedisReserver is the fast-path store: per-deal counter + reserved-user
// set, mutated only through the scripts above.
type RedisReserver struct {
	RDB    *redis.Client
	Loader InventoryLoader
}

func (r *RedisReserver) TryReserve(ctx context.Context, dealID, userID string) (ReserveOutcome, error) {
	invKey := fmt.Sprintf(redisx.KeyDealInventory, dealID)
	setKey := fmt.Sprintf(redisx.KeyDealClaimed, dealID)

	for attempt := 0; attempt < 3; attempt++ {
		res, err := reserveScript.Run(ctx, r.RDB, []string{invKey, setKey}, userID).Int()
		if err != nil {
			return 0, fmt.Errorf("reserve %s: %w", dealID, err)
		}
		switch res {
		case 1:
			return Reserved, nil
		case 0:
			return SoldOut, nil
		case -1:
			return AlreadyReserved, nil
		case -2:
			if err := r.hydrate(ctx, dealID); err != nil {
				return 0, err
			}
		}
	}
	return 0, fmt.Errorf("reserve %s: hydration did not converge", dealID)
}

func (r *RedisReserver) Release(ctx context.Context, dealID, userID string) error {
	invKey := fmt.Sprintf(redisx.KeyDealInventory, dealID)
	setKey := fmt.Sprintf(redisx.KeyDealClaimed, dealID)
	if err := releaseScript.Run(ctx, r.RDB, []string{invKey, setKey}, userID).Err(); err != nil {
		return fmt.Errorf("release %s: %w", dealID, err)
	}
	return nil
}

// hydrate projects the durable counter and claimant set into cache, once per
// deal under an init lock so concurrent cold-cache claimers don't race each
// other's projections. Losers back off briefly and re-run the script.
func (r *RedisReserver) hydrate(ctx context.Context, dealID string) error {
	lockKey := fmt.Sprintf(redisx.KeyDealInit, dealID)
	ok, err := r.RDB.SetNX(ctx, lockKey, "1", redisx.TTLInitLock).Result()
	if err != nil {
		return fmt.Errorf("hydrate %s: lock: %w", dealID, err)
	}
	if !ok {
		// Another request is hydrating right now.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return nil
		}
	}
	defer r.RDB.Del(ctx, lockKey)

	remaining, claimants, validUntil, err := r.Loader.LoadInventory(ctx, dealID)
	if err != nil {
		return err
	}
	ttl := time.Until(validUntil)
	if ttl <= 0 {
		return deals.ErrDealExpired
	}

	invKey := fmt.Sprintf(redisx.KeyDealInventory, dealID)
	setKey := fmt.Sprintf(redisx.KeyDealClaimed, dealID)

	// SETNX: never clobber a counter a concurrent hydrator just wrote.
	if err := r.RDB.SetNX(ctx, invKey, remaining, ttl).Err(); err != nil {
		return fmt.Errorf("hydrate %s: counter: %w", dealID, err)
	}
	if len(claimants) > 0 {
		members := make([]interface{}, len(claimants))
		for i, u := range claimants {
			members[i] = u
		}
		if err := r.RDB.SAdd(ctx, setKey, members...).Err(); err != nil {
			return fmt.Errorf("hydrate %s: claimants: %w", dealID, err)
		}
	}
	if err := r.RDB.Expire(ctx, setKey, ttl).Err(); err != nil {
		return fmt.Errorf("hydrate %s: expire: %w", dealID, err)
	}
	return nil
}
