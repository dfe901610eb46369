package estimate

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Promo is a discount shown as a banner on the review step and in the PDF.
type Promo struct {
	Code        string `json:"code"`
	Headline    string `json:"headline"`
	Description string `json:"description"`
}

var promos = map[string]Promo{
	"ARX25": {
		Code:        "ARX25",
		Headline:    "25% off your design consultation",
		Description: "Promo code ARX25 has been applied. Your project manager will apply the discount to your written estimate.",
	},
}

// NormalizePromo trims and uppercases a promo code.
func NormalizePromo(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// LookupPromo returns the promotion for code, case-insensitively.
func LookupPromo(code string) (Promo, bool) {
	p, ok := promos[NormalizePromo(code)]
	return p, ok
}

// ReferenceNumber formats a reference as ARX-<last 6 digits of the unix
// millisecond timestamp>-<3 digit random>. Not globally unique.
func ReferenceNumber(now time.Time, random int) string {
	return fmt.Sprintf("ARX-%06d-%03d", mod(now.UnixMilli(), 1_000_000), mod(int64(random), 1000))
}

// mod is the non-negative remainder of x / n.
func mod(x, n int64) int64 {
	return (x%n + n) % n
}

// NewReferenceNumber generates a reference for the current time.
func NewReferenceNumber() string {
	return ReferenceNumber(time.Now(), rand.IntN(1000))
}
