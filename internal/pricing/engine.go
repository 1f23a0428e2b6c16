package pricing

import (
	"context"
	"errors"
	"fmt"
)

// ErrPriceRequired is returned when a submission carries neither a local nor
// a foreign price.
var ErrPriceRequired = errors.New("pricing: price in real or dollar required")

// Source supplies the BRL/USD exchange rate. Implementations must always
// return a usable rate, falling back to a configured default when the
// upstream provider is unavailable.
type Source interface {
	Rate(ctx context.Context) float64
}

// Submission is a supplier's raw price entry for one item. A zero price
// means the field was not filled in.
type Submission struct {
	PriceInReal    float64
	PriceInDollar  float64
	IPIPercentage  float64
	ICMSPercentage float64
}

// Breakdown is the fully computed price for a submission.
type Breakdown struct {
	BasePrice    float64 `json:"basePrice"`
	ExchangeRate float64 `json:"exchangeRate"`
	IPIAmount    float64 `json:"ipiAmount"`
	ICMSAmount   float64 `json:"icmsAmount"`
	FinalPrice   float64 `json:"finalPrice"`
}

// Engine turns submissions into price breakdowns using a rate source for
// foreign currency conversion.
type Engine struct {
	rates Source
}

func NewEngine(rates Source) *Engine {
	return &Engine{rates: rates}
}

// Process computes the final price for a submission. A local (BRL) price is
// authoritative: when present the foreign price is ignored and the exchange
// rate recorded as 1. A foreign-only submission is converted at the current
// rate before taxes apply.
func (e *Engine) Process(ctx context.Context, sub Submission) (Breakdown, error) {
	var base, rate float64
	switch {
	case sub.PriceInReal > 0:
		base, rate = sub.PriceInReal, 1
	case sub.PriceInDollar > 0:
		rate = e.rates.Rate(ctx)
		base = ConvertToLocal(sub.PriceInDollar, rate)
	default:
		return Breakdown{}, ErrPriceRequired
	}

	ipi := TaxAmount(base, sub.IPIPercentage)
	icms := TaxAmount(base, sub.ICMSPercentage)
	return Breakdown{
		BasePrice:    base,
		ExchangeRate: rate,
		IPIAmount:    ipi,
		ICMSAmount:   icms,
		FinalPrice:   FinalPrice(base, ipi, icms),
	}, nil
}

// TaxAmount computes a percentage tax over a base price. Zero or negative
// percentages contribute nothing.
func TaxAmount(base, percentage float64) float64 {
	if base <= 0 || percentage <= 0 {
		return 0
	}
	return base * percentage / 100
}

// FinalPrice sums the base price with the tax amounts.
func FinalPrice(base, ipiAmount, icmsAmount float64) float64 {
	return base + ipiAmount + icmsAmount
}

// ConvertToLocal converts a foreign amount to local currency at rate.
func ConvertToLocal(foreign, rate float64) float64 {
	return foreign * rate
}

// MeetsTarget reports whether a final price is at or below the target. An
// absent or zero target never matches, so items without a negotiating goal
// are not flagged as winners by accident.
func MeetsTarget(finalPrice float64, target *float64) bool {
	if target == nil || *target == 0 {
		return false
	}
	return finalPrice <= *target
}

// Offer pairs a supplier with its computed final price for one item.
type Offer struct {
	SupplierID   int64   `json:"supplierId"`
	CompanyName  string  `json:"companyName"`
	FinalPrice   float64 `json:"finalPrice"`
	ExchangeRate float64 `json:"exchangeRate"`
}

// LowestOffer returns the cheapest offer. When several offers tie, the first
// one in input order wins. The second return is false for an empty slice.
func LowestOffer(offers []Offer) (Offer, bool) {
	if len(offers) == 0 {
		return Offer{}, false
	}
	best := offers[0]
	for _, o := range offers[1:] {
		if o.FinalPrice < best.FinalPrice {
			best = o
		}
	}
	return best, true
}

func (b Breakdown) String() string {
	return fmt.Sprintf("base=%.2f rate=%.4f ipi=%.2f icms=%.2f final=%.2f",
		b.BasePrice, b.ExchangeRate, b.IPIAmount, b.ICMSAmount, b.FinalPrice)
}
