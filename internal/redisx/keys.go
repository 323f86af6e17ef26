package redisx

import "time"

const (
	// Snapshot of the deal document: deal:{deal_id} -> JSON
	KeyDealSnapshot = "deal:%s"

	// Fast-path inventory counter: deal:{deal_id}:inventory -> int
	KeyDealInventory = "deal:%s:inventory"

	// Fast-path reserved-user set: deal:{deal_id}:claimed -> SET of user ids
	KeyDealClaimed = "deal:%s:claimed"

	// Per-deal hydration lock: deal:{deal_id}:init -> "1"
	KeyDealInit = "deal:%s:init"

	// Discovery snapshot: discovery:{lat}:{lng}:{radius} (lat/lng quantized)
	KeyDiscovery = "discovery:%s:%s:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	// TTLDiscovery bounds staleness of what is shown, never what is
	// claimable.
	TTLDiscovery = 30 * time.Second

	// TTLInitLock caps how long a crashed hydrator can block others.
	TTLInitLock = 5 * time.Second

	TTLDedup = 48 * time.Hour
)
