package deals

import (
	"encoding/json"
	"time"
)

const (
	EventDealCreated     = "DealCreated"
	EventDealClaimed     = "DealClaimed"
	EventVoucherRedeemed = "VoucherRedeemed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "deal-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya deal_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type DealCreatedPayload struct {
	DealID             string    `json:"deal_id"`
	MerchantID         string    `json:"merchant_id"`
	Title              string    `json:"title"`
	TotalVouchers      int       `json:"total_vouchers"`
	InventoryRemaining int       `json:"inventory_remaining"`
	ValidUntil         time.Time `json:"valid_until"`
	Location           LatLng    `json:"location"`
}

type DealClaimedPayload struct {
	DealID      string `json:"deal_id"`
	UserID      string `json:"user_id"`
	VoucherCode string `json:"voucher_code"`
}

type VoucherRedeemedPayload struct {
	DealID      string `json:"deal_id"`
	UserID      string `json:"user_id"`
	VoucherCode string `json:"voucher_code"`
}
