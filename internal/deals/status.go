package deals

import "time"

type ClaimStatus string

const (
	ClaimActive   ClaimStatus = "active"
	ClaimRedeemed ClaimStatus = "redeemed"
	ClaimExpired  ClaimStatus = "expired"
)

// EffectiveStatus resolves lazy expiry: an active claim whose expires_at
// has passed reads as expired without any stored mutation.
func (c *Claim) EffectiveStatus(now time.Time) ClaimStatus {
	if c.Status == ClaimActive && !now.Before(c.ExpiresAt) {
		return ClaimExpired
	}
	return c.Status
}

func (c *Claim) Redeemable(now time.Time) bool {
	return c.EffectiveStatus(now) == ClaimActive
}
