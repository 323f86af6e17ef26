package deals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flashdealz/flash-deal-engine/internal/geo"
)

type Repo struct{ DB *pgxpool.Pool }

type DealInput struct {
	MerchantID    string `json:"merchant_id"`
	Title         string `json:"title"`
	TotalVouchers int    `json:"total_vouchers"`
	ValidUntil    string `json:"valid_until"` // ISO-8601
	Location      LatLng `json:"location"`
}

func (r *Repo) CreateDeal(ctx context.Context, in DealInput, validUntil time.Time) (*Deal, error) {
	d := &Deal{
		ID:                 uuid.NewString(),
		MerchantID:         in.MerchantID,
		Title:              in.Title,
		TotalVouchers:      in.TotalVouchers,
		InventoryRemaining: in.TotalVouchers,
		ValidUntil:         validUntil,
		Location:           in.Location,
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO deals(id, merchant_id, title, total_vouchers, inventory_remaining, valid_until, lat, lng)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		d.ID, d.MerchantID, d.Title, d.TotalVouchers, d.InventoryRemaining, d.ValidUntil, d.Location.Lat, d.Location.Lng,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *Repo) GetDeal(ctx context.Context, dealID string) (*Deal, error) {
	var d Deal
	err := r.DB.QueryRow(ctx, `
		SELECT id, merchant_id, title, total_vouchers, inventory_remaining, valid_until, lat, lng, created_at, updated_at
		FROM deals WHERE id=$1`, dealID,
	).Scan(&d.ID, &d.MerchantID, &d.Title, &d.TotalVouchers, &d.InventoryRemaining,
		&d.ValidUntil, &d.Location.Lat, &d.Location.Lng, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FindNearbyCandidates returns active deals inside the bounding box around
// the query point. The box over-approximates the radius; the caller applies
// the exact haversine cut.
func (r *Repo) FindNearbyCandidates(ctx context.Context, lat, lng, radiusKm float64) ([]Deal, error) {
	box := geo.Box(lat, lng, radiusKm)
	rows, err := r.DB.Query(ctx, `
		SELECT id, merchant_id, title, total_vouchers, inventory_remaining, valid_until, lat, lng
		FROM deals
		WHERE valid_until > now() AND inventory_remaining > 0
		  AND lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4`,
		box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Deal
	for rows.Next() {
		var d Deal
		if err := rows.Scan(&d.ID, &d.MerchantID, &d.Title, &d.TotalVouchers, &d.InventoryRemaining,
			&d.ValidUntil, &d.Location.Lat, &d.Location.Lng); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LoadInventory reads the durable counter and claimant set for lazy
// hydration of the fast-path keys after a cache restart or eviction.
func (r *Repo) LoadInventory(ctx context.Context, dealID string) (remaining int, claimants []string, validUntil time.Time, err error) {
	err = r.DB.QueryRow(ctx, `SELECT inventory_remaining, valid_until FROM deals WHERE id=$1`, dealID).
		Scan(&remaining, &validUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return 0, nil, time.Time{}, err
	}

	rows, err := r.DB.Query(ctx, `SELECT user_id FROM deal_claimants WHERE deal_id=$1`, dealID)
	if err != nil {
		return 0, nil, time.Time{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return 0, nil, time.Time{}, err
		}
		claimants = append(claimants, u)
	}
	return remaining, claimants, validUntil, rows.Err()
}
