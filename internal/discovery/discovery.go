package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/flashdealz/flash-deal-engine/internal/deals"
	"github.com/flashdealz/flash-deal-engine/internal/geo"
	"github.com/flashdealz/flash-deal-engine/internal/metrics"
	"github.com/flashdealz/flash-deal-engine/internal/redisx"
)

const (
	SourceCache = "cache"
	SourceStore = "store"

	// maxResults caps one discovery response, like the source store query.
	maxResults = 50
)

// DealFinder is the ledger side of discovery.
type DealFinder interface {
	FindNearbyCandidates(ctx context.Context, lat, lng, radiusKm float64) ([]deals.Deal, error)
}

type Result struct {
	Source string             `json:"source"`
	Count  int                `json:"count"`
	Deals  []deals.NearbyDeal `json:"deals"`
}

// Service serves "deals near here" with bounded staleness. The cache only
// affects what is shown; claim correctness is enforced elsewhere.
type Service struct {
	Redis *redis.Client
	Store DealFinder
}

func (s *Service) Discover(ctx context.Context, lat, lng, radiusKm float64) (*Result, error) {
	key := cacheKey(lat, lng, radiusKm)

	if cached, err := s.Redis.Get(ctx, key).Result(); err == nil && cached != "" {
		var res Result
		if err := json.Unmarshal([]byte(cached), &res); err == nil {
			res.Source = SourceCache
			metrics.DiscoveryRequests.WithLabelValues(SourceCache).Inc()
			return &res, nil
		}
	}

	candidates, err := s.Store.FindNearbyCandidates(ctx, lat, lng, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("discover near (%v,%v): %w", lat, lng, err)
	}

	enriched := enrich(candidates, lat, lng, radiusKm)
	res := &Result{Source: SourceStore, Count: len(enriched), Deals: enriched}

	if b, err := json.Marshal(res); err == nil {
		// Best effort: a failed cache write only costs the next request a
		// store round-trip.
		_ = s.Redis.Set(ctx, key, b, redisx.TTLDiscovery).Err()
	}
	metrics.DiscoveryRequests.WithLabelValues(SourceStore).Inc()
	return res, nil
}

// enrich applies the exact haversine cut to the bounding-box candidates,
// attaches distances and sorts by proximity.
func enrich(candidates []deals.Deal, lat, lng, radiusKm float64) []deals.NearbyDeal {
	out := make([]deals.NearbyDeal, 0, len(candidates))
	for _, d := range candidates {
		dist := geo.Haversine(lat, lng, d.Location.Lat, d.Location.Lng)
		if dist > radiusKm {
			continue
		}
		out = append(out, deals.NearbyDeal{
			DealID:             d.ID,
			MerchantID:         d.MerchantID,
			Title:              d.Title,
			TotalVouchers:      d.TotalVouchers,
			InventoryRemaining: d.InventoryRemaining,
			ValidUntil:         d.ValidUntil,
			Location:           d.Location,
			DistanceKm:         math.Round(dist*100) / 100,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

// cacheKey quantizes coordinates so near-identical queries share an entry.
func cacheKey(lat, lng, radiusKm float64) string {
	return fmt.Sprintf(redisx.KeyDiscovery, geo.Quantize(lat), geo.Quantize(lng), int(radiusKm))
}
