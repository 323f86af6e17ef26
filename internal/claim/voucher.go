package claim

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const voucherNamespace = "SHOP"

// NewVoucherCode builds a human-readable voucher code: namespace marker, a
// deal-derived suffix, a time-ordered base36 component, and random entropy.
// Collisions are statistically negligible; actual uniqueness is enforced by
// the ledger's constraint on voucher_code.
func NewVoucherCode(dealID string) string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))

	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	random := strings.ToUpper(hex.EncodeToString(buf))

	return voucherNamespace + "-" + dealSuffix(dealID) + "-" + ts + random
}

// dealSuffix keeps the last 4 alphanumerics of the deal id so codes from
// different deals are visually distinguishable.
func dealSuffix(dealID string) string {
	clean := strings.ReplaceAll(dealID, "-", "")
	if len(clean) > 4 {
		clean = clean[len(clean)-4:]
	}
	return strings.ToUpper(clean)
}
