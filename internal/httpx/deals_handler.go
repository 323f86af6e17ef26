package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/flashdealz/flash-deal-engine/internal/deals"
	"github.com/flashdealz/flash-deal-engine/internal/discovery"
	kafkax "github.com/flashdealz/flash-deal-engine/internal/kafka"
	"github.com/flashdealz/flash-deal-engine/internal/projector"
	"github.com/flashdealz/flash-deal-engine/internal/redisx"
)

type DealStore interface {
	CreateDeal(ctx context.Context, in deals.DealInput, validUntil time.Time) (*deals.Deal, error)
	GetDeal(ctx context.Context, dealID string) (*deals.Deal, error)
}

type ClaimEngine interface {
	Claim(ctx context.Context, dealID, userID string) (*deals.Claim, error)
}

type Discoverer interface {
	Discover(ctx context.Context, lat, lng, radiusKm float64) (*discovery.Result, error)
}

type Redeemer interface {
	RedeemClaim(ctx context.Context, voucherCode string) (*deals.Claim, error)
}

type DealsHandler struct {
	Deals     DealStore
	Engine    ClaimEngine
	Discovery Discoverer
	Claims    Redeemer
	Redis     *redis.Client
	Projector *projector.Service

	ProducerCreated  *kafkax.Producer
	ProducerClaimed  *kafkax.Producer
	ProducerRedeemed *kafkax.Producer
	Service          string
}

type ClaimReq struct {
	UserID string `json:"user_id"`
}

func (h *DealsHandler) Register(r *chi.Mux) {
	r.Post("/deals", h.createDeal)
	r.Get("/deals", h.discoverDeals)
	r.Get("/deals/{deal_id}", h.getDeal)
	r.Post("/deals/{deal_id}/claim", h.claimDeal)
	r.Post("/claims/{voucher_code}/redeem", h.redeemVoucher)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFail(w http.ResponseWriter, code int, reason string) {
	writeJSON(w, code, map[string]string{"status": "fail", "reason": reason})
}

func (h *DealsHandler) createDeal(w http.ResponseWriter, r *http.Request) {
	var req deals.DealInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}
	validUntil, reason := validateDealInput(req)
	if reason != "" {
		writeFail(w, http.StatusBadRequest, reason)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	d, err := h.Deals.CreateDeal(ctx, req, validUntil)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "failed to create deal"})
		return
	}

	payload := deals.DealCreatedPayload{
		DealID:             d.ID,
		MerchantID:         d.MerchantID,
		Title:              d.Title,
		TotalVouchers:      d.TotalVouchers,
		InventoryRemaining: d.InventoryRemaining,
		ValidUntil:         d.ValidUntil,
		Location:           d.Location,
	}

	// Warm the fast-path keys right away; the projector will also catch the
	// event, and a cold cache hydrates lazily anyway.
	_ = h.Projector.Project(ctx, payload)

	h.publish(h.ProducerCreated, deals.EventDealCreated, d.ID, r, payload)

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"deal_id": d.ID,
		"data": map[string]any{
			"merchant_id":    d.MerchantID,
			"title":          d.Title,
			"total_vouchers": d.TotalVouchers,
			"valid_until":    d.ValidUntil,
			"location":       d.Location,
		},
	})
}

func (h *DealsHandler) discoverDeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("long"), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		writeFail(w, http.StatusBadRequest, "lat and long are required and must be valid coordinates")
		return
	}
	radius := 5.0
	if s := q.Get("radius"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			radius = v
		}
	}
	if radius < 1 {
		radius = 1
	}
	if radius > 50 {
		radius = 50
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	res, err := h.Discovery.Discover(ctx, lat, lng, radius)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "failed to discover deals"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"source": res.Source,
		"count":  res.Count,
		"deals":  res.Deals,
	})
}

func (h *DealsHandler) getDeal(w http.ResponseWriter, r *http.Request) {
	dealID := chi.URLParam(r, "deal_id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) snapshot cache
	key := fmt.Sprintf(redisx.KeyDealSnapshot, dealID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	// 2) fallback to the ledger, re-warming the snapshot
	d, err := h.Deals.GetDeal(ctx, dealID)
	if errors.Is(err, deals.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "Deal not found")
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "failed to load deal"})
		return
	}
	payload := deals.DealCreatedPayload{
		DealID:             d.ID,
		MerchantID:         d.MerchantID,
		Title:              d.Title,
		TotalVouchers:      d.TotalVouchers,
		InventoryRemaining: d.InventoryRemaining,
		ValidUntil:         d.ValidUntil,
		Location:           d.Location,
	}
	_ = h.Projector.Project(ctx, payload)
	writeJSON(w, http.StatusOK, payload)
}

func (h *DealsHandler) claimDeal(w http.ResponseWriter, r *http.Request) {
	dealID := chi.URLParam(r, "deal_id")
	var req ClaimReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID == "" {
		writeFail(w, http.StatusBadRequest, "user_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := h.Engine.Claim(ctx, dealID, req.UserID)
	if err != nil {
		// Every rejection carries its own reason; client UX differs for
		// "you already have this" vs "it's gone" vs "it's over".
		switch {
		case errors.Is(err, deals.ErrAlreadyClaimed):
			writeFail(w, http.StatusBadRequest, "User already claimed")
		case errors.Is(err, deals.ErrDealExpired):
			writeFail(w, http.StatusBadRequest, "Deal has expired")
		case errors.Is(err, deals.ErrNotFound):
			writeFail(w, http.StatusNotFound, "Deal not found")
		case errors.Is(err, deals.ErrSoldOut):
			writeFail(w, http.StatusConflict, "Deal Sold Out")
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "failed to claim deal"})
		}
		return
	}

	h.publish(h.ProducerClaimed, deals.EventDealClaimed, dealID, r, deals.DealClaimedPayload{
		DealID:      c.DealID,
		UserID:      c.UserID,
		VoucherCode: c.VoucherCode,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"status":       "success",
		"voucher_code": c.VoucherCode,
		"message":      "Deal claimed successfully",
	})
}

func (h *DealsHandler) redeemVoucher(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "voucher_code")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Claims.RedeemClaim(ctx, code)
	if err != nil {
		switch {
		case errors.Is(err, deals.ErrClaimNotFound):
			writeFail(w, http.StatusNotFound, "Voucher not found")
		case errors.Is(err, deals.ErrAlreadyRedeemed):
			writeFail(w, http.StatusBadRequest, "Voucher already redeemed")
		case errors.Is(err, deals.ErrClaimExpired):
			writeFail(w, http.StatusBadRequest, "Voucher has expired")
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "failed to redeem voucher"})
		}
		return
	}

	h.publish(h.ProducerRedeemed, deals.EventVoucherRedeemed, c.DealID, r, deals.VoucherRedeemedPayload{
		DealID:      c.DealID,
		UserID:      c.UserID,
		VoucherCode: c.VoucherCode,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "success",
		"voucher_code": c.VoucherCode,
		"redeemed_at":  c.RedeemedAt,
	})
}

func (h *DealsHandler) publish(p *kafkax.Producer, eventType, dealID string, r *http.Request, payload any) {
	ev := deals.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: dealID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(deals.PartitionKey(dealID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// validateDealInput applies the create-deal rules; returns the parsed
// valid_until or a rejection reason.
func validateDealInput(in deals.DealInput) (time.Time, string) {
	if in.MerchantID == "" || len(in.MerchantID) > 100 {
		return time.Time{}, "merchant_id is required (max 100 characters)"
	}
	if len(in.Title) < 5 || len(in.Title) > 200 {
		return time.Time{}, "title must be between 5-200 characters"
	}
	if in.TotalVouchers < 1 || in.TotalVouchers > 10000 {
		return time.Time{}, "total_vouchers must be between 1-10000"
	}
	validUntil, err := time.Parse(time.RFC3339, in.ValidUntil)
	if err != nil {
		return time.Time{}, "valid_until must be ISO-8601"
	}
	if !validUntil.After(time.Now()) {
		return time.Time{}, "valid_until must be in the future"
	}
	if in.Location.Lat < -90 || in.Location.Lat > 90 {
		return time.Time{}, "location.lat must be between -90 and 90"
	}
	if in.Location.Lng < -180 || in.Location.Lng > 180 {
		return time.Time{}, "location.lng must be between -180 and 180"
	}
	return validUntil, ""
}
