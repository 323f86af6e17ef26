package deals

import "time"

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Deal struct {
	ID                 string
	MerchantID         string
	Title              string
	TotalVouchers      int
	InventoryRemaining int
	ValidUntil         time.Time
	Location           LatLng
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Claimable reports whether the deal can still hand out vouchers.
// Expiry is a computed predicate, never a stored mutation.
func (d *Deal) Claimable(now time.Time) bool {
	return now.Before(d.ValidUntil) && d.InventoryRemaining > 0
}

type Claim struct {
	ID          string
	DealID      string
	UserID      string
	MerchantID  string
	VoucherCode string
	Status      ClaimStatus // lihat status.go
	ClaimedAt   time.Time
	RedeemedAt  *time.Time
	ExpiresAt   time.Time
}

// NearbyDeal is the discovery view of a deal, enriched with the
// great-circle distance from the query point.
type NearbyDeal struct {
	DealID             string    `json:"deal_id"`
	MerchantID         string    `json:"merchant_id"`
	Title              string    `json:"title"`
	TotalVouchers      int       `json:"total_vouchers"`
	InventoryRemaining int       `json:"inventory_remaining"`
	ValidUntil         time.Time `json:"valid_until"`
	Location           LatLng    `json:"location"`
	DistanceKm         float64   `json:"distance_km"`
}
