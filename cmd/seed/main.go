package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/flashdealz/flash-deal-engine/internal/config"
	"github.com/flashdealz/flash-deal-engine/internal/deals"
	"github.com/flashdealz/flash-deal-engine/internal/postgres"
	"github.com/flashdealz/flash-deal-engine/internal/projector"
	"github.com/flashdealz/flash-deal-engine/internal/redisx"
)

type sampleDeal struct {
	merchantID    string
	title         string
	totalVouchers int
	remaining     int
	validIn       time.Duration // negative = already expired
	lat, lng      float64
}

var samples = []sampleDeal{
	{"123e4567-e89b-12d3-a456-426614174000", "Flat 50% Off on Grilled Sandwiches", 100, 100, 7 * 24 * time.Hour, 19.0760, 72.8777},
	{"merchant-gadget-zone-001", "20% OFF [iPhone 15 Claim Sale]", 50, 5, 2 * 24 * time.Hour, 19.0780, 72.8777},
	{"merchant-gadget-zone-001", "DSLR Camera 30% Off - Expired Deal", 50, 50, -2 * 24 * time.Hour, 19.0750, 72.8800},
	{"123e4567-e89b-12d3-a456-426614174000", "Free Iced Tea (Expired)", 50, 10, -30 * 24 * time.Hour, 28.6139, 77.2090},
	{"merchant-delhi-brunch-002", "Delhi Brunch Grand Opening", 10, 10, 14 * 24 * time.Hour, 28.7041, 77.1025},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	if _, err := db.Exec(ctx, `TRUNCATE claims, deal_claimants, deals`); err != nil {
		log.Fatalf("clear tables: %v", err)
	}
	if err := rdb.FlushDB(ctx).Err(); err != nil {
		log.Fatalf("clear redis: %v", err)
	}

	repo := &deals.Repo{DB: db}
	proj := &projector.Service{Redis: rdb, ServiceName: cfg.ServiceName + "-seed"}

	now := time.Now()
	active := 0
	for _, s := range samples {
		validUntil := now.Add(s.validIn)
		d, err := repo.CreateDeal(ctx, deals.DealInput{
			MerchantID:    s.merchantID,
			Title:         s.title,
			TotalVouchers: s.totalVouchers,
			Location:      deals.LatLng{Lat: s.lat, Lng: s.lng},
		}, validUntil)
		if err != nil {
			log.Fatalf("insert %q: %v", s.title, err)
		}

		// Seeds can start below full inventory (partially claimed deals).
		if s.remaining != s.totalVouchers {
			if _, err := db.Exec(ctx,
				`UPDATE deals SET inventory_remaining=$2 WHERE id=$1`, d.ID, s.remaining); err != nil {
				log.Fatalf("set remaining %q: %v", s.title, err)
			}
			d.InventoryRemaining = s.remaining
		}

		if validUntil.After(now) {
			if err := proj.Project(ctx, deals.DealCreatedPayload{
				DealID:             d.ID,
				MerchantID:         d.MerchantID,
				Title:              d.Title,
				TotalVouchers:      d.TotalVouchers,
				InventoryRemaining: d.InventoryRemaining,
				ValidUntil:         d.ValidUntil,
				Location:           d.Location,
			}); err != nil {
				log.Fatalf("project %q: %v", s.title, err)
			}
			active++
			log.Printf("  %s (%d/%d) at %.4f,%.4f", d.Title, d.InventoryRemaining, d.TotalVouchers, s.lat, s.lng)
		}
	}

	log.Printf("seeded %d deals (%d active, cached in redis)", len(samples), active)
	log.Printf(`try: curl "http://localhost:8080/deals?lat=19.0760&long=72.8777&radius=5"`)
}
