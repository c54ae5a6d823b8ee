// Package batch generates many videos from a prompt file, sequentially or
// with a bounded worker pool. Each item is priced and charged individually,
// so a drained balance stops later items without clawing back earlier ones.
package batch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/manash/vidgen/internal/credits"
	"github.com/manash/vidgen/internal/media"
	"github.com/manash/vidgen/internal/pricing"
	"github.com/manash/vidgen/pkg/models"
)

// Generator dispatches one request and blocks until the video is ready.
type Generator interface {
	Generate(ctx context.Context, req *models.VideoRequest) (*models.Response, error)
}

type Result struct {
	Index    int
	Prompt   string
	Path     string
	Cost     decimal.Decimal
	Credits  int64
	Error    error
	Duration time.Duration
}

type Options struct {
	OutputDir    string
	DefaultModel string
	Audio        bool
	Parallel     int
	StopOnError  bool
	DelayMs      int
}

type Processor struct {
	generator Generator
	saver     *media.Saver
	catalog   *models.Catalog
	resolver  *pricing.Resolver
	ledger    *credits.Ledger
	out       io.Writer
	err       io.Writer
	outMu     sync.Mutex
}

func NewProcessor(gen Generator, saver *media.Saver, catalog *models.Catalog, resolver *pricing.Resolver, ledger *credits.Ledger, out, errOut io.Writer) *Processor {
	return &Processor{
		generator: gen,
		saver:     saver,
		catalog:   catalog,
		resolver:  resolver,
		ledger:    ledger,
		out:       out,
		err:       errOut,
	}
}

func (p *Processor) printf(format string, args ...interface{}) {
	p.outMu.Lock()
	fmt.Fprintf(p.out, format, args...)
	p.outMu.Unlock()
}

func (p *Processor) errorf(format string, args ...interface{}) {
	p.outMu.Lock()
	fmt.Fprintf(p.err, format, args...)
	p.outMu.Unlock()
}

func (p *Processor) Process(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	if opts.Parallel <= 1 {
		return p.processSequential(ctx, items, opts)
	}
	return p.processParallel(ctx, items, opts)
}

func (p *Processor) processSequential(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	results := make([]Result, len(items))
	total := len(items)

	for i, item := range items {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result := p.processItem(ctx, item, opts, i+1, total)
		results[i] = result

		if result.Error != nil && opts.StopOnError {
			return results, fmt.Errorf("stopped at item %d: %w", i+1, result.Error)
		}

		if opts.DelayMs > 0 && i < len(items)-1 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(time.Duration(opts.DelayMs) * time.Millisecond):
			}
		}
	}

	return results, nil
}

func (p *Processor) processParallel(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	results := make([]Result, len(items))
	total := len(items)

	type job struct {
		index int
		item  Item
	}

	jobs := make(chan job, len(items))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	workers := opts.Parallel
	if workers > len(items) {
		workers = len(items)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}

				result := p.processItem(ctx, j.item, opts, j.index+1, total)

				mu.Lock()
				results[j.index] = result
				if result.Error != nil && opts.StopOnError && firstErr == nil {
					firstErr = result.Error
				}
				mu.Unlock()

				if opts.StopOnError && firstErr != nil {
					return
				}
			}
		}()
	}

	for i, item := range items {
		if opts.StopOnError && firstErr != nil {
			break
		}
		jobs <- job{index: i, item: item}
	}
	close(jobs)

	wg.Wait()

	if firstErr != nil {
		return results, fmt.Errorf("batch stopped due to error: %w", firstErr)
	}

	return results, nil
}

func (p *Processor) processItem(ctx context.Context, item Item, opts *Options, current, total int) Result {
	start := time.Now()
	result := Result{
		Index:  item.Index,
		Prompt: item.Prompt,
	}

	fail := func(err error) Result {
		result.Error = err
		result.Duration = time.Since(start)
		p.errorf("       Error: %v\n", err)
		return result
	}

	promptDisplay := truncate(item.Prompt, 50)
	p.printf("[%d/%d] Generating: %q...\n", current, total, promptDisplay)

	model := item.Model
	if model == "" {
		model = opts.DefaultModel
	}

	caps, ok := p.catalog.Get(model)
	if !ok {
		return fail(fmt.Errorf("unknown model: %s", model))
	}

	sel, err := itemSelection(item, caps, opts)
	if err != nil {
		return fail(err)
	}

	price, err := p.resolver.Resolve(caps.Name, sel)
	if err != nil {
		return fail(err)
	}

	ok, err = p.ledger.CanAfford(ctx, price.Amount)
	if err != nil {
		return fail(err)
	}
	if !ok {
		return fail(fmt.Errorf("insufficient credits: need %d", pricing.Credits(price.Amount)))
	}

	req := sel.Request(caps, item.Prompt)
	if err := caps.Validate(req); err != nil {
		return fail(fmt.Errorf("validation failed: %w", err))
	}

	resp, err := p.generator.Generate(ctx, req)
	if err != nil {
		return fail(fmt.Errorf("generation failed: %w", err))
	}

	filename := generateFilename(item.Index, item.Prompt)
	outputPath := filepath.Join(opts.OutputDir, filename)

	paths, err := p.saver.SaveAll(resp, outputPath)
	if err != nil {
		return fail(fmt.Errorf("save failed: %w", err))
	}

	if _, err := p.ledger.Charge(ctx, price.Amount, model+" batch generation", ""); err != nil {
		p.errorf("       Warning: failed to charge credits: %v\n", err)
	}

	result.Path = paths[0]
	result.Cost = price.Amount
	result.Credits = pricing.Credits(price.Amount)
	result.Duration = time.Since(start)

	p.printf("       Saved: %s (%s)\n", result.Path, price)
	return result
}

// itemSelection builds the selection for one item: defaults from the model,
// overridden by explicit item fields. An override naming an option the model
// does not offer fails the item rather than silently resetting.
func itemSelection(item Item, caps *models.ModelCapabilities, opts *Options) (models.Selection, error) {
	sel := models.DefaultSelection(caps)
	sel.Audio = opts.Audio && caps.SupportsAudio

	if item.Aspect != "" {
		idx := indexOf(caps.AspectRatios, item.Aspect)
		if idx < 0 {
			return sel, fmt.Errorf("%w: %s offers %v", models.ErrInvalidAspectRatio, caps.Name, caps.AspectRatios)
		}
		sel.AspectIndex = idx
	}
	if item.Resolution != "" {
		idx := indexOf(caps.Resolutions, item.Resolution)
		if idx < 0 {
			return sel, fmt.Errorf("%w: %s offers %v", models.ErrInvalidResolution, caps.Name, caps.Resolutions)
		}
		sel.ResolutionIndex = idx
	}
	if item.Seconds > 0 {
		idx := -1
		for i, d := range caps.Durations {
			if d == item.Seconds {
				idx = i
			}
		}
		if idx < 0 {
			return sel, fmt.Errorf("%w: %s offers %v", models.ErrInvalidDuration, caps.Name, caps.Durations)
		}
		sel.DurationIndex = idx
	}

	return sel, nil
}

func indexOf(options []string, value string) int {
	for i, opt := range options {
		if opt == value {
			return i
		}
	}
	return -1
}

func generateFilename(index int, prompt string) string {
	return fmt.Sprintf("%03d-%s.mp4", index, sanitizePrompt(prompt))
}

var promptChars = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)

func sanitizePrompt(prompt string) string {
	sanitized := promptChars.ReplaceAllString(prompt, "")
	sanitized = strings.ToLower(sanitized)
	sanitized = strings.Join(strings.Fields(sanitized), "-")
	sanitized = strings.TrimLeft(sanitized, "-")

	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}
	sanitized = strings.TrimSuffix(sanitized, "-")

	if sanitized == "" {
		sanitized = "video"
	}

	return media.SanitizeFilename(sanitized)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func (p *Processor) PrintSummary(results []Result) {
	var successful, failed int
	totalCost := decimal.Zero
	var totalCredits int64
	var errored []Result

	for _, r := range results {
		if r.Error != nil {
			failed++
			errored = append(errored, r)
		} else {
			successful++
			totalCost = totalCost.Add(r.Cost)
			totalCredits += r.Credits
		}
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "Summary:")
	fmt.Fprintf(p.out, "  Successful: %d/%d videos\n", successful, len(results))
	if failed > 0 {
		fmt.Fprintf(p.out, "  Failed: %d (see errors below)\n", failed)
	}
	fmt.Fprintf(p.out, "  Total cost: %s (%d credits)\n", pricing.FormatUSD(totalCost), totalCredits)

	if len(errored) > 0 {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, "Errors:")
		for _, e := range errored {
			promptDisplay := truncate(e.Prompt, 40)
			fmt.Fprintf(p.out, "  [%d] %q: %v\n", e.Index, promptDisplay, e.Error)
		}
	}
}
