package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/manash/vidgen/internal/pricing"
	"github.com/manash/vidgen/internal/session"
	"github.com/manash/vidgen/pkg/models"
	"github.com/shopspring/decimal"
)

func testCaps() *models.ModelCapabilities {
	return &models.ModelCapabilities{
		Name:          "veo-3",
		DisplayName:   "Veo 3",
		Provider:      models.ProviderVeo,
		AspectRatios:  []string{"16:9", "9:16"},
		Resolutions:   []string{"720p", "1080p"},
		Durations:     []int{4, 8},
		Modes:         []models.GenerationMode{models.ModeTextToVideo, models.ModeImageToVideo},
		SupportsAudio: true,
		BaseCost:      5.0,
	}
}

func TestRenderer_Models(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Models([]*models.ModelCapabilities{testCaps()})

	out := buf.String()
	for _, want := range []string{"MODEL", "veo-3", "veo", "text-to-video", "yes", "$5.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderer_Model(t *testing.T) {
	var buf bytes.Buffer
	caps := testCaps()
	caps.MotionTiers = []string{"standard", "pro"}
	caps.MaxReferenceSeconds = 30
	New(&buf).Model(caps)

	out := buf.String()
	for _, want := range []string{
		"Veo 3 (veo-3)", "16:9, 9:16", "720p, 1080p", "4s, 8s",
		"standard, pro", "30s", "$5.00", "Audio:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderer_Price(t *testing.T) {
	var buf bytes.Buffer
	caps := testCaps()
	sel := models.DefaultSelection(caps)
	price := pricing.Price{
		Kind:     pricing.KindVariable,
		Amount:   decimal.RequireFromString("4.00"),
		Currency: pricing.CurrencyUSD,
	}
	New(&buf).Price("veo-3", sel, caps, price)

	out := buf.String()
	for _, want := range []string{"veo-3", "$4.00", "Credits:", "400", "Audio:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderer_Price_RatePending(t *testing.T) {
	var buf bytes.Buffer
	caps := &models.ModelCapabilities{
		Name:         "kling-2.1",
		AspectRatios: []string{"16:9"},
		Resolutions:  []string{"720p"},
		Durations:    []int{5},
		Modes:        []models.GenerationMode{models.ModeMotionControl},
		MotionTiers:  []string{"standard", "pro"},
		BaseCost:     3.5,
	}
	sel := models.DefaultSelection(caps)
	sel.Mode = models.ModeMotionControl
	price := pricing.Price{
		Kind:      pricing.KindMotionRate,
		PerSecond: decimal.RequireFromString("0.08"),
		Currency:  pricing.CurrencyUSD,
	}
	New(&buf).Price("kling-2.1", sel, caps, price)

	out := buf.String()
	if !strings.Contains(out, "$0.08/sec") {
		t.Errorf("output missing rate: %s", out)
	}
	if strings.Contains(out, "Credits:") {
		t.Errorf("rate-pending price should not show credits: %s", out)
	}
	if !strings.Contains(out, "standard") {
		t.Errorf("output missing tier: %s", out)
	}
}

func TestRenderer_Balance(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Balance(420)

	out := buf.String()
	if !strings.Contains(out, "420 credits") || !strings.Contains(out, "$4.20") {
		t.Errorf("Balance output = %s", out)
	}
}

func TestRenderer_Usage(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Usage(
		&session.SpendSummary{TotalCredits: 980, GenerationCount: 3},
		[]session.ModelSpendSummary{
			{Model: "veo-3", TotalCredits: 800, GenerationCount: 2},
			{Model: "kling-2.1", TotalCredits: 180, GenerationCount: 1},
		},
	)

	out := buf.String()
	for _, want := range []string{"980 credits", "$9.80", "veo-3", "kling-2.1", "180"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderer_Sessions(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	New(&buf).Sessions([]*session.Session{
		{ID: "0123456789abcdef", Name: "shorts", Model: "veo-3", UpdatedAt: now},
		{ID: "fedcba9876543210", Model: "kling-2.1", UpdatedAt: now},
	})

	out := buf.String()
	if !strings.Contains(out, "01234567") || strings.Contains(out, "0123456789abcdef") {
		t.Errorf("session ids should be shortened: %s", out)
	}
	if !strings.Contains(out, "(unnamed)") {
		t.Errorf("missing unnamed placeholder: %s", out)
	}
}

func TestRenderer_Sessions_Empty(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Sessions(nil)
	if !strings.Contains(buf.String(), "No sessions.") {
		t.Errorf("output = %s", buf.String())
	}
}

func TestRenderer_History(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).History([]*session.Generation{
		{
			Prompt:      strings.Repeat("a very long prompt ", 5),
			Model:       "veo-3",
			Mode:        "text-to-video",
			AspectRatio: "9:16",
			Resolution:  "720p",
			Seconds:     8,
			CostUSD:     "4.00",
			Timestamp:   time.Now(),
		},
	})

	out := buf.String()
	if !strings.Contains(out, "9:16/720p/8s") || !strings.Contains(out, "$4.00") {
		t.Errorf("History output = %s", out)
	}
	if !strings.Contains(out, "...") {
		t.Errorf("long prompt should be truncated: %s", out)
	}
}

func TestRenderer_Ledger(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Ledger([]*session.LedgerEntry{
		{Delta: 1000, Description: "top-up", Timestamp: time.Now()},
		{Delta: -400, Description: "veo-3 generation", Timestamp: time.Now()},
	}, 600)

	out := buf.String()
	for _, want := range []string{"+1000", "-400", "Balance: 600 credits"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
