package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flashdealz/flash-deal-engine/internal/deals"
	"github.com/flashdealz/flash-deal-engine/internal/discovery"
	kafkax "github.com/flashdealz/flash-deal-engine/internal/kafka"
	"github.com/flashdealz/flash-deal-engine/internal/projector"
)

type fakeDeals struct {
	deal      *deals.Deal
	createErr error
	getErr    error
}

func (f *fakeDeals) CreateDeal(_ context.Context, in deals.DealInput, validUntil time.Time) (*deals.Deal, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &deals.Deal{
		ID:                 uuid.NewString(),
		MerchantID:         in.MerchantID,
		Title:              in.Title,
		TotalVouchers:      in.TotalVouchers,
		InventoryRemaining: in.TotalVouchers,
		ValidUntil:         validUntil,
		Location:           in.Location,
	}, nil
}

func (f *fakeDeals) GetDeal(context.Context, string) (*deals.Deal, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.deal, nil
}

type fakeEngine struct {
	claim *deals.Claim
	err   error
}

func (f *fakeEngine) Claim(context.Context, string, string) (*deals.Claim, error) {
	return f.claim, f.err
}

type fakeDiscovery struct {
	res *discovery.Result
	err error
}

func (f *fakeDiscovery) Discover(context.Context, float64, float64, float64) (*discovery.Result, error) {
	return f.res, f.err
}

type fakeRedeemer struct {
	claim *deals.Claim
	err   error
}

func (f *fakeRedeemer) RedeemClaim(context.Context, string) (*deals.Claim, error) {
	return f.claim, f.err
}

func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func newTestHandler(h *DealsHandler) http.Handler {
	rdb := deadRedis()
	if h.Redis == nil {
		h.Redis = rdb
	}
	if h.Projector == nil {
		h.Projector = &projector.Service{Redis: rdb, ServiceName: "test"}
	}
	// Un-started producers just buffer; nothing reaches a broker in tests.
	h.ProducerCreated = kafkax.NewProducer([]string{"127.0.0.1:9092"}, deals.TopicDealCreated, 64)
	h.ProducerClaimed = kafkax.NewProducer([]string{"127.0.0.1:9092"}, deals.TopicDealClaimed, 64)
	h.ProducerRedeemed = kafkax.NewProducer([]string{"127.0.0.1:9092"}, deals.TopicVoucherRedeemed, 64)
	h.Service = "test"
	r := NewRouter()
	h.Register(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func validCreateBody() string {
	until := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	return fmt.Sprintf(`{"merchant_id":"m1","title":"Half Price Coffee","total_vouchers":100,"valid_until":"%s","location":{"lat":19.076,"lng":72.8777}}`, until)
}

func TestCreateDeal(t *testing.T) {
	h := newTestHandler(&DealsHandler{Deals: &fakeDeals{}})

	w := doJSON(t, h, http.MethodPost, "/deals", validCreateBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
		DealID string `json:"deal_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" || resp.DealID == "" {
		t.Errorf("response = %+v, want success with deal_id", resp)
	}
}

func TestCreateDealValidation(t *testing.T) {
	until := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing merchant", fmt.Sprintf(`{"title":"Half Price Coffee","total_vouchers":10,"valid_until":"%s","location":{"lat":1,"lng":1}}`, until)},
		{"short title", fmt.Sprintf(`{"merchant_id":"m1","title":"ab","total_vouchers":10,"valid_until":"%s","location":{"lat":1,"lng":1}}`, until)},
		{"zero vouchers", fmt.Sprintf(`{"merchant_id":"m1","title":"Half Price Coffee","total_vouchers":0,"valid_until":"%s","location":{"lat":1,"lng":1}}`, until)},
		{"too many vouchers", fmt.Sprintf(`{"merchant_id":"m1","title":"Half Price Coffee","total_vouchers":10001,"valid_until":"%s","location":{"lat":1,"lng":1}}`, until)},
		{"past valid_until", `{"merchant_id":"m1","title":"Half Price Coffee","total_vouchers":10,"valid_until":"2020-01-01T00:00:00Z","location":{"lat":1,"lng":1}}`},
		{"unparseable valid_until", `{"merchant_id":"m1","title":"Half Price Coffee","total_vouchers":10,"valid_until":"tomorrow","location":{"lat":1,"lng":1}}`},
		{"latitude out of range", fmt.Sprintf(`{"merchant_id":"m1","title":"Half Price Coffee","total_vouchers":10,"valid_until":"%s","location":{"lat":95,"lng":1}}`, until)},
		{"longitude out of range", fmt.Sprintf(`{"merchant_id":"m1","title":"Half Price Coffee","total_vouchers":10,"valid_until":"%s","location":{"lat":1,"lng":181}}`, until)},
	}
	h := newTestHandler(&DealsHandler{Deals: &fakeDeals{}})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := doJSON(t, h, http.MethodPost, "/deals", tc.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
		})
	}
}

func TestDiscoverDeals(t *testing.T) {
	res := &discovery.Result{
		Source: discovery.SourceStore,
		Count:  1,
		Deals: []deals.NearbyDeal{{
			DealID: "d1", Title: "Half Price Coffee", DistanceKm: 0.22,
		}},
	}
	h := newTestHandler(&DealsHandler{Discovery: &fakeDiscovery{res: res}})

	w := doJSON(t, h, http.MethodGet, "/deals?lat=19.076&long=72.8777&radius=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	var resp struct {
		Source string             `json:"source"`
		Count  int                `json:"count"`
		Deals  []deals.NearbyDeal `json:"deals"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Source != "store" || resp.Count != 1 || len(resp.Deals) != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestDiscoverDealsRejectsBadCoords(t *testing.T) {
	h := newTestHandler(&DealsHandler{Discovery: &fakeDiscovery{}})
	for _, path := range []string{
		"/deals",
		"/deals?lat=19.076",
		"/deals?lat=abc&long=72.8",
		"/deals?lat=95&long=72.8",
		"/deals?lat=19.076&long=999",
	} {
		if w := doJSON(t, h, http.MethodGet, path, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, w.Code)
		}
	}
}

func TestClaimDealStatusMapping(t *testing.T) {
	okClaim := &deals.Claim{
		DealID:      "d1",
		UserID:      "u1",
		VoucherCode: "SHOP-4000-ABC123",
		Status:      deals.ClaimActive,
	}
	cases := []struct {
		name       string
		engine     *fakeEngine
		wantCode   int
		wantReason string
	}{
		{"success", &fakeEngine{claim: okClaim}, http.StatusOK, ""},
		{"already claimed", &fakeEngine{err: deals.ErrAlreadyClaimed}, http.StatusBadRequest, "User already claimed"},
		{"expired", &fakeEngine{err: deals.ErrDealExpired}, http.StatusBadRequest, "Deal has expired"},
		{"not found", &fakeEngine{err: deals.ErrNotFound}, http.StatusNotFound, "Deal not found"},
		{"sold out", &fakeEngine{err: deals.ErrSoldOut}, http.StatusConflict, "Deal Sold Out"},
		{"system error", &fakeEngine{err: errors.New("redis down")}, http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(&DealsHandler{Engine: tc.engine})
			w := doJSON(t, h, http.MethodPost, "/deals/d1/claim", `{"user_id":"u1"}`)
			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantReason != "" && !strings.Contains(w.Body.String(), tc.wantReason) {
				t.Errorf("body %s missing reason %q", w.Body.String(), tc.wantReason)
			}
			if tc.wantCode == http.StatusOK && !strings.Contains(w.Body.String(), okClaim.VoucherCode) {
				t.Errorf("body %s missing voucher code", w.Body.String())
			}
		})
	}
}

func TestClaimDealRequiresUserID(t *testing.T) {
	h := newTestHandler(&DealsHandler{Engine: &fakeEngine{}})
	if w := doJSON(t, h, http.MethodPost, "/deals/d1/claim", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRedeemVoucherStatusMapping(t *testing.T) {
	redeemedAt := time.Now()
	okClaim := &deals.Claim{
		DealID:      "d1",
		UserID:      "u1",
		VoucherCode: "SHOP-4000-ABC123",
		Status:      deals.ClaimRedeemed,
		RedeemedAt:  &redeemedAt,
	}
	cases := []struct {
		name     string
		redeemer *fakeRedeemer
		wantCode int
	}{
		{"success", &fakeRedeemer{claim: okClaim}, http.StatusOK},
		{"unknown voucher", &fakeRedeemer{err: deals.ErrClaimNotFound}, http.StatusNotFound},
		{"already redeemed", &fakeRedeemer{err: deals.ErrAlreadyRedeemed}, http.StatusBadRequest},
		{"lapsed", &fakeRedeemer{err: deals.ErrClaimExpired}, http.StatusBadRequest},
		{"system error", &fakeRedeemer{err: errors.New("db down")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(&DealsHandler{Claims: tc.redeemer})
			w := doJSON(t, h, http.MethodPost, "/claims/SHOP-4000-ABC123/redeem", "")
			if w.Code != tc.wantCode {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tc.wantCode, w.Body.String())
			}
		})
	}
}

func TestGetDealFallsBackToStore(t *testing.T) {
	d := &deals.Deal{
		ID:                 "d1",
		MerchantID:         "m1",
		Title:              "Half Price Coffee",
		TotalVouchers:      100,
		InventoryRemaining: 40,
		ValidUntil:         time.Now().Add(time.Hour),
	}
	h := newTestHandler(&DealsHandler{Deals: &fakeDeals{deal: d}})

	w := doJSON(t, h, http.MethodGet, "/deals/d1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"deal_id":"d1"`) {
		t.Errorf("body %s missing deal_id", w.Body.String())
	}
}

func TestGetDealNotFound(t *testing.T) {
	h := newTestHandler(&DealsHandler{Deals: &fakeDeals{getErr: deals.ErrNotFound}})
	if w := doJSON(t, h, http.MethodGet, "/deals/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
