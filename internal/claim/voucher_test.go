package claim

import (
	"regexp"
	"strings"
	"testing"
)

func TestNewVoucherCodeFormat(t *testing.T) {
	dealID := "123e4567-e89b-12d3-a456-426614174000"
	code := NewVoucherCode(dealID)

	format := regexp.MustCompile(`^SHOP-[0-9A-Z]{4}-[0-9A-Z]+$`)
	if !format.MatchString(code) {
		t.Fatalf("code %q does not match SHOP-XXXX-... format", code)
	}
	// The middle segment is the tail of the deal id with hyphens stripped.
	if !strings.HasPrefix(code, "SHOP-4000-") {
		t.Errorf("code %q does not embed deal suffix 4000", code)
	}
}

func TestNewVoucherCodeShortDealID(t *testing.T) {
	code := NewVoucherCode("ab")
	if !strings.HasPrefix(code, "SHOP-AB-") {
		t.Errorf("code %q should keep the whole short id as suffix", code)
	}
}

func TestNewVoucherCodeDistinguishesDeals(t *testing.T) {
	a := NewVoucherCode("123e4567-e89b-12d3-a456-426614174000")
	b := NewVoucherCode("99999999-0000-0000-0000-00000000beef")
	if strings.Split(a, "-")[1] == strings.Split(b, "-")[1] {
		t.Errorf("codes %q and %q share a deal suffix", a, b)
	}
}

func TestNewVoucherCodeVaries(t *testing.T) {
	dealID := "123e4567-e89b-12d3-a456-426614174000"
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		seen[NewVoucherCode(dealID)] = true
	}
	if len(seen) < 2 {
		t.Error("repeated calls produced a single code, random tail not applied")
	}
}
