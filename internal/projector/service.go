package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/flashdealz/flash-deal-engine/internal/deals"
	kafkax "github.com/flashdealz/flash-deal-engine/internal/kafka"
	"github.com/flashdealz/flash-deal-engine/internal/redisx"
)

// Service keeps the fast-path cache warm by projecting deal lifecycle
// events into Redis. Claim correctness never depends on it: a cold cache is
// hydrated lazily by the reservation path.
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// HandleDealCreated is wired as the consumer handler for deal.created.
func (s *Service) HandleDealCreated(ctx context.Context, m kafkago.Message) error {
	var env deals.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != deals.EventDealCreated {
		return nil
	}

	// dedup via event_id
	dkey := fmt.Sprintf(redisx.KeyDedup, "projector", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[deals.DealCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	return s.Project(ctx, p)
}

// Project writes the deal snapshot and inventory counter, both expiring
// with the deal's validity window. The counter uses SETNX so a projection
// replay never clobbers live reservation state.
func (s *Service) Project(ctx context.Context, p deals.DealCreatedPayload) error {
	ttl := time.Until(p.ValidUntil)
	if ttl <= 0 {
		return nil // already expired, nothing to warm
	}

	snapshot, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.Redis.Set(ctx, fmt.Sprintf(redisx.KeyDealSnapshot, p.DealID), snapshot, ttl).Err(); err != nil {
		return fmt.Errorf("project snapshot %s: %w", p.DealID, err)
	}
	if err := s.Redis.SetNX(ctx, fmt.Sprintf(redisx.KeyDealInventory, p.DealID), p.InventoryRemaining, ttl).Err(); err != nil {
		return fmt.Errorf("project counter %s: %w", p.DealID, err)
	}
	return nil
}
