package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/manash/vidgen/internal/catalog"
	"github.com/manash/vidgen/pkg/models"
)

func newTestResolver(t *testing.T) (*Resolver, *models.Catalog) {
	t.Helper()
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error: %v", err)
	}
	return NewResolver(cat), cat
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return v
}

func TestResolver_TablePricesReturnedExactly(t *testing.T) {
	r, cat := newTestResolver(t)

	// Every combination present in a table must resolve to exactly the stored
	// value when audio is on (or the model has no audio at all).
	for _, model := range cat.List() {
		table, ok := TableFor(model)
		if !ok || len(table.Variable) == 0 {
			continue
		}
		caps, _ := cat.Get(model)

		for key, want := range table.Variable {
			sel := selectionFor(t, caps, key)
			sel.Audio = caps.SupportsAudio

			got, err := r.Resolve(model, sel)
			if err != nil {
				t.Fatalf("%s %v: Resolve() error: %v", model, key, err)
			}
			if got.Kind != KindVariable {
				t.Errorf("%s %v: Kind = %s, want variable", model, key, got.Kind)
			}
			if !got.Amount.Equal(want) {
				t.Errorf("%s %v: Amount = %s, want %s", model, key, got.Amount, want)
			}
		}
	}
}

// selectionFor builds a selection whose indices resolve to the given key.
func selectionFor(t *testing.T, caps *models.ModelCapabilities, key Key) models.Selection {
	t.Helper()
	sel := models.Selection{Mode: models.ModeTextToVideo}
	found := 0
	for i, a := range caps.AspectRatios {
		if a == key.Aspect {
			sel.AspectIndex = i
			found++
		}
	}
	for i, res := range caps.Resolutions {
		if res == key.Resolution {
			sel.ResolutionIndex = i
			found++
		}
	}
	for i, d := range caps.Durations {
		if d == key.Seconds {
			sel.DurationIndex = i
			found++
		}
	}
	if found != 3 {
		t.Fatalf("pricing key %v does not match %s option lists", key, caps.Name)
	}
	return sel
}

func TestResolver_AudioAddonSubtraction(t *testing.T) {
	r, _ := newTestResolver(t)

	// 9:16 / 720p / 8s is priced 4.00 with an 0.50 addon at 8s.
	sel := models.Selection{AspectIndex: 1, ResolutionIndex: 0, DurationIndex: 1, Mode: models.ModeTextToVideo}

	sel.Audio = true
	got, err := r.Resolve("veo-3", sel)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !got.Amount.Equal(mustDecimal(t, "4.00")) {
		t.Errorf("audio on: Amount = %s, want 4.00", got.Amount)
	}

	sel.Audio = false
	got, err = r.Resolve("veo-3", sel)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !got.Amount.Equal(mustDecimal(t, "3.50")) {
		t.Errorf("audio off: Amount = %s, want 3.50", got.Amount)
	}
}

func TestResolver_AudioOffWithoutAddonEntry(t *testing.T) {
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error: %v", err)
	}
	r := &Resolver{
		catalog: cat,
		tables: map[string]*Table{
			"veo-3": {
				Variable: map[Key]decimal.Decimal{
					{Aspect: "16:9", Resolution: "720p", Seconds: 8}: d("4.00"),
				},
				// No addon entry for 8s: disabling audio must not change the price.
				AudioAddon: map[int]decimal.Decimal{4: d("0.25")},
			},
		},
	}

	sel := models.Selection{AspectIndex: 0, ResolutionIndex: 0, DurationIndex: 1, Audio: false, Mode: models.ModeTextToVideo}
	got, err := r.Resolve("veo-3", sel)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !got.Amount.Equal(d("4.00")) {
		t.Errorf("Amount = %s, want 4.00 unchanged", got.Amount)
	}
}

func TestResolver_AbsentCombinationFallsBackToBaseCost(t *testing.T) {
	r, _ := newTestResolver(t)

	// veo-3 does not offer 9:16 at 1080p; base cost is 5.00.
	sel := models.Selection{AspectIndex: 1, ResolutionIndex: 1, DurationIndex: 1, Audio: true, Mode: models.ModeTextToVideo}
	got, err := r.Resolve("veo-3", sel)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.Kind != KindFlat {
		t.Errorf("Kind = %s, want flat", got.Kind)
	}
	if !got.Amount.Equal(mustDecimal(t, "5.00")) {
		t.Errorf("Amount = %s, want 5.00", got.Amount)
	}
}

func TestResolver_OutOfRangeSelectionFallsBackToBaseCost(t *testing.T) {
	r, _ := newTestResolver(t)

	sel := models.Selection{AspectIndex: 9, ResolutionIndex: 0, DurationIndex: 0, Mode: models.ModeTextToVideo}
	got, err := r.Resolve("kling-2.1", sel)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.Kind != KindFlat {
		t.Errorf("Kind = %s, want flat", got.Kind)
	}
	if !got.Amount.Equal(mustDecimal(t, "3.5")) {
		t.Errorf("Amount = %s, want 3.5", got.Amount)
	}
}

func TestResolver_FlatOnlyModel(t *testing.T) {
	r, cat := newTestResolver(t)
	caps, _ := cat.Get("hailuo-02")

	sel := models.DefaultSelection(caps)
	got, err := r.Resolve("hailuo-02", sel)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.Kind != KindFlat {
		t.Errorf("Kind = %s, want flat", got.Kind)
	}
	if !got.Amount.Equal(mustDecimal(t, "2.8")) {
		t.Errorf("Amount = %s, want 2.8", got.Amount)
	}
}

func TestResolver_UnknownModel(t *testing.T) {
	r, _ := newTestResolver(t)

	got, err := r.Resolve("sora-2", models.Selection{})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.Kind != KindFlat || !got.Amount.IsZero() {
		t.Errorf("unknown model should resolve to zero flat price, got %s %s", got.Kind, got.Amount)
	}
}

func TestResolver_MotionControl_RatePending(t *testing.T) {
	r, _ := newTestResolver(t)

	sel := models.Selection{Mode: models.ModeMotionControl, TierIndex: 0}
	got, err := r.Resolve("kling-2.1", sel)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !got.RatePending() {
		t.Fatalf("Kind = %s, want motion-rate", got.Kind)
	}
	if !got.PerSecond.Equal(mustDecimal(t, "0.08")) {
		t.Errorf("PerSecond = %s, want 0.08", got.PerSecond)
	}
	if got.String() != "$0.08/sec" {
		t.Errorf("String() = %s, want $0.08/sec", got.String())
	}
}

func TestResolver_MotionControl_Total(t *testing.T) {
	r, _ := newTestResolver(t)

	// pro tier at 0.15/sec, 12 second reference video: 1.80.
	sel := models.Selection{Mode: models.ModeMotionControl, TierIndex: 1, ReferenceSeconds: 12}
	got, err := r.Resolve("kling-2.1", sel)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.Kind != KindMotionTotal {
		t.Fatalf("Kind = %s, want motion-total", got.Kind)
	}
	if !got.Amount.Equal(mustDecimal(t, "1.80")) {
		t.Errorf("Amount = %s, want 1.80", got.Amount)
	}
	if !got.PerSecond.Equal(mustDecimal(t, "0.15")) {
		t.Errorf("PerSecond = %s, want 0.15", got.PerSecond)
	}
}

func TestResolver_MotionControl_SingleTierIgnoresTierIndex(t *testing.T) {
	r, _ := newTestResolver(t)

	var prices []decimal.Decimal
	for _, idx := range []int{0, 1, 5} {
		sel := models.Selection{Mode: models.ModeMotionControl, TierIndex: idx, ReferenceSeconds: 10}
		got, err := r.Resolve("wan-2.2", sel)
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		prices = append(prices, got.Amount)
	}

	for i := 1; i < len(prices); i++ {
		if !prices[i].Equal(prices[0]) {
			t.Errorf("tier index should not affect single-tier pricing: %s vs %s", prices[i], prices[0])
		}
	}
	if !prices[0].Equal(mustDecimal(t, "0.50")) {
		t.Errorf("Amount = %s, want 0.50", prices[0])
	}
}

func TestResolver_NegativeAdjustedPrice(t *testing.T) {
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error: %v", err)
	}
	r := &Resolver{
		catalog: cat,
		tables: map[string]*Table{
			"veo-3": {
				Variable: map[Key]decimal.Decimal{
					{Aspect: "16:9", Resolution: "720p", Seconds: 4}: d("0.20"),
				},
				AudioAddon: map[int]decimal.Decimal{4: d("0.25")},
			},
		},
	}

	sel := models.Selection{AspectIndex: 0, ResolutionIndex: 0, DurationIndex: 0, Audio: false, Mode: models.ModeTextToVideo}
	got, err := r.Resolve("veo-3", sel)
	if !errors.Is(err, ErrNegativePrice) {
		t.Fatalf("Resolve() error = %v, want ErrNegativePrice", err)
	}
	if !got.Amount.Equal(d("-0.05")) {
		t.Errorf("Amount = %s, want -0.05 unclamped", got.Amount)
	}
}

func TestResolver_PriceString(t *testing.T) {
	p := Price{Kind: KindVariable, Amount: decimal.RequireFromString("3.5"), Currency: CurrencyUSD}
	if p.String() != "$3.50" {
		t.Errorf("String() = %s, want $3.50", p.String())
	}
}

func TestTableLabelsMatchCatalogOptionLists(t *testing.T) {
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error: %v", err)
	}

	for model, table := range tables {
		caps, ok := cat.Get(model)
		if !ok {
			t.Errorf("pricing table for %s has no catalog entry", model)
			continue
		}

		for key := range table.Variable {
			if !contains(caps.AspectRatios, key.Aspect) {
				t.Errorf("%s: table aspect %q not in catalog list", model, key.Aspect)
			}
			if !contains(caps.Resolutions, key.Resolution) {
				t.Errorf("%s: table resolution %q not in catalog list", model, key.Resolution)
			}
			if !containsInt(caps.Durations, key.Seconds) {
				t.Errorf("%s: table duration %d not in catalog list", model, key.Seconds)
			}
			if table.Variable[key].IsNegative() {
				t.Errorf("%s %v: negative table price", model, key)
			}
		}

		for tier := range table.MotionRates {
			if !contains(caps.MotionTiers, tier) {
				t.Errorf("%s: rate tier %q not in catalog tiers", model, tier)
			}
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}
