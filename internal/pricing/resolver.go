package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/manash/vidgen/pkg/models"
)

const CurrencyUSD = "USD"

// ErrNegativePrice reports a configuration error: the audio add-on for the
// selected duration is larger than the table price it is subtracted from.
// The price is returned unclamped alongside the error.
var ErrNegativePrice = errors.New("audio add-on exceeds table price")

type Kind int

const (
	KindFlat Kind = iota
	KindVariable
	KindMotionRate
	KindMotionTotal
)

func (k Kind) String() string {
	switch k {
	case KindFlat:
		return "flat"
	case KindVariable:
		return "variable"
	case KindMotionRate:
		return "motion-rate"
	case KindMotionTotal:
		return "motion-total"
	default:
		return "unknown"
	}
}

// Price is the outcome of a resolution. For KindMotionRate no total exists
// yet (no reference video selected) and PerSecond carries the tier rate; for
// KindMotionTotal both fields are set.
type Price struct {
	Kind      Kind
	Amount    decimal.Decimal
	PerSecond decimal.Decimal
	Currency  string
}

// RatePending reports whether the price is a per-second rate awaiting a
// reference video rather than a total.
func (p Price) RatePending() bool {
	return p.Kind == KindMotionRate
}

func (p Price) String() string {
	if p.RatePending() {
		return fmt.Sprintf("$%s/sec", p.PerSecond.StringFixed(2))
	}
	return "$" + p.Amount.StringFixed(2)
}

// Resolver computes the price of a configured generation from the catalog's
// option lists and the compiled-in pricing tables. It is pure and cheap;
// callers re-resolve on every selection change.
type Resolver struct {
	catalog *models.Catalog
	tables  map[string]*Table
}

func NewResolver(catalog *models.Catalog) *Resolver {
	return &Resolver{catalog: catalog, tables: tables}
}

// Resolve returns the price for the given model and selection.
//
// Fallback precedence for the non-motion path: no table, any out-of-range
// selection index, or a combination absent from the table all resolve to the
// model's flat base cost. Absent combinations are never interpolated.
// An unknown model resolves to a zero flat price.
func (r *Resolver) Resolve(model string, sel models.Selection) (Price, error) {
	caps, ok := r.catalog.Get(model)
	if !ok {
		return flat(decimal.Zero), nil
	}

	base := decimal.NewFromFloat(caps.BaseCost)

	if sel.Mode == models.ModeMotionControl {
		return r.resolveMotion(caps, sel, base)
	}

	table, ok := r.tables[model]
	if !ok || len(table.Variable) == 0 {
		return flat(base), nil
	}

	if !sel.InRange(caps) {
		return flat(base), nil
	}

	key := Key{
		Aspect:     sel.AspectRatio(caps),
		Resolution: sel.Resolution(caps),
		Seconds:    sel.Seconds(caps),
	}

	price, ok := table.Variable[key]
	if !ok {
		return flat(base), nil
	}

	if caps.SupportsAudio && !sel.Audio {
		if addon, ok := table.AudioAddon[key.Seconds]; ok {
			price = price.Sub(addon)
		}
	}

	result := Price{Kind: KindVariable, Amount: price, Currency: CurrencyUSD}
	if price.IsNegative() {
		return result, fmt.Errorf("%w: %s %v", ErrNegativePrice, model, key)
	}
	return result, nil
}

func (r *Resolver) resolveMotion(caps *models.ModelCapabilities, sel models.Selection, base decimal.Decimal) (Price, error) {
	table, ok := r.tables[caps.Name]
	if !ok || len(table.MotionRates) == 0 {
		return flat(base), nil
	}

	rate, ok := table.MotionRates[sel.Tier(caps)]
	if !ok {
		return flat(base), nil
	}

	if sel.ReferenceSeconds <= 0 {
		return Price{Kind: KindMotionRate, PerSecond: rate, Currency: CurrencyUSD}, nil
	}

	total := rate.Mul(decimal.NewFromInt(int64(sel.ReferenceSeconds))).Round(2)
	return Price{Kind: KindMotionTotal, Amount: total, PerSecond: rate, Currency: CurrencyUSD}, nil
}

func flat(amount decimal.Decimal) Price {
	return Price{Kind: KindFlat, Amount: amount, Currency: CurrencyUSD}
}
