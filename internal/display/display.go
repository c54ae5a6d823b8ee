// Package display renders the model catalog, resolved prices, and usage
// summaries as aligned text tables.
package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/manash/vidgen/internal/pricing"
	"github.com/manash/vidgen/internal/session"
	"github.com/manash/vidgen/pkg/models"
)

type Renderer struct {
	out io.Writer
}

func New(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

func (r *Renderer) tab() *tabwriter.Writer {
	return tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
}

// Models renders the catalog as a table.
func (r *Renderer) Models(list []*models.ModelCapabilities) {
	w := r.tab()
	fmt.Fprintln(w, "MODEL\tPROVIDER\tMODES\tAUDIO\tBASE")
	for _, caps := range list {
		audio := "no"
		if caps.SupportsAudio {
			audio = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t$%.2f\n",
			caps.Name, caps.Provider, strings.Join(modeStrings(caps.Modes), ","), audio, caps.BaseCost)
	}
	w.Flush()
}

// Model renders the full option lists for a single model.
func (r *Renderer) Model(caps *models.ModelCapabilities) {
	w := r.tab()
	fmt.Fprintf(w, "Model:\t%s (%s)\n", caps.DisplayName, caps.Name)
	fmt.Fprintf(w, "Provider:\t%s\n", caps.Provider)
	fmt.Fprintf(w, "Aspect ratios:\t%s\n", strings.Join(caps.AspectRatios, ", "))
	fmt.Fprintf(w, "Resolutions:\t%s\n", strings.Join(caps.Resolutions, ", "))
	fmt.Fprintf(w, "Durations:\t%s\n", joinInts(caps.Durations))
	fmt.Fprintf(w, "Modes:\t%s\n", strings.Join(modeStrings(caps.Modes), ", "))
	if caps.SupportsAudio {
		fmt.Fprintf(w, "Audio:\tsupported\n")
	}
	if len(caps.MotionTiers) > 0 {
		fmt.Fprintf(w, "Motion tiers:\t%s\n", strings.Join(caps.MotionTiers, ", "))
	}
	if caps.MaxReferenceSeconds > 0 {
		fmt.Fprintf(w, "Max reference video:\t%ds\n", caps.MaxReferenceSeconds)
	}
	fmt.Fprintf(w, "Base cost:\t$%.2f\n", caps.BaseCost)
	w.Flush()
}

// Price renders a resolved price with its credit equivalent. Rate-pending
// motion prices have no credit equivalent until a reference video is set.
func (r *Renderer) Price(model string, sel models.Selection, caps *models.ModelCapabilities, price pricing.Price) {
	w := r.tab()
	fmt.Fprintf(w, "Model:\t%s\n", model)
	fmt.Fprintf(w, "Settings:\t%s / %s / %ds\n", sel.AspectRatio(caps), sel.Resolution(caps), sel.Seconds(caps))
	if sel.Mode == models.ModeMotionControl {
		fmt.Fprintf(w, "Motion tier:\t%s\n", sel.Tier(caps))
		if sel.ReferenceSeconds > 0 {
			fmt.Fprintf(w, "Reference video:\t%ds\n", sel.ReferenceSeconds)
		}
	}
	if caps.SupportsAudio {
		audio := "off"
		if sel.Audio {
			audio = "on"
		}
		fmt.Fprintf(w, "Audio:\t%s\n", audio)
	}
	fmt.Fprintf(w, "Price:\t%s\n", price)
	if !price.RatePending() {
		fmt.Fprintf(w, "Credits:\t%d\n", pricing.Credits(price.Amount))
	}
	w.Flush()
}

// Balance renders the current credit balance.
func (r *Renderer) Balance(credits int64) {
	fmt.Fprintf(r.out, "Balance: %d credits (%s)\n", credits, pricing.FormatUSD(pricing.CreditsToUSD(credits)))
}

// Usage renders spend summaries, total and per model.
func (r *Renderer) Usage(total *session.SpendSummary, byModel []session.ModelSpendSummary) {
	w := r.tab()
	fmt.Fprintf(w, "Generations:\t%d\n", total.GenerationCount)
	fmt.Fprintf(w, "Total spend:\t%d credits (%s)\n", total.TotalCredits, pricing.FormatUSD(pricing.CreditsToUSD(total.TotalCredits)))
	w.Flush()

	if len(byModel) == 0 {
		return
	}
	fmt.Fprintln(r.out)
	w = r.tab()
	fmt.Fprintln(w, "MODEL\tGENERATIONS\tCREDITS")
	for _, m := range byModel {
		fmt.Fprintf(w, "%s\t%d\t%d\n", m.Model, m.GenerationCount, m.TotalCredits)
	}
	w.Flush()
}

// Sessions renders the saved session list.
func (r *Renderer) Sessions(sessions []*session.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(r.out, "No sessions.")
		return
	}
	w := r.tab()
	fmt.Fprintln(w, "ID\tNAME\tMODEL\tUPDATED")
	for _, s := range sessions {
		name := s.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", shortID(s.ID), name, s.Model, session.FormatTimestamp(s.UpdatedAt))
	}
	w.Flush()
}

// History renders past generations for a session.
func (r *Renderer) History(gens []*session.Generation) {
	if len(gens) == 0 {
		fmt.Fprintln(r.out, "No generations yet.")
		return
	}
	w := r.tab()
	fmt.Fprintln(w, "WHEN\tMODEL\tMODE\tSETTINGS\tCOST\tPROMPT")
	for _, g := range gens {
		settings := fmt.Sprintf("%s/%s/%ds", g.AspectRatio, g.Resolution, g.Seconds)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t$%s\t%s\n",
			session.FormatTimestamp(g.Timestamp), g.Model, g.Mode, settings, g.CostUSD, truncate(g.Prompt, 40))
	}
	w.Flush()
}

// Ledger renders credit ledger entries, newest first.
func (r *Renderer) Ledger(entries []*session.LedgerEntry, balance int64) {
	w := r.tab()
	fmt.Fprintln(w, "WHEN\tDELTA\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%+d\t%s\n", session.FormatTimestamp(e.Timestamp), e.Delta, e.Description)
	}
	w.Flush()
	fmt.Fprintf(r.out, "\nBalance: %d credits\n", balance)
}

func modeStrings(modes []models.GenerationMode) []string {
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = string(m)
	}
	return out
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v) + "s"
	}
	return strings.Join(parts, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
