// Package repl is the interactive configuration surface: pick a model, walk
// its option lists, and watch the resolved price follow every change.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/manash/vidgen/internal/credits"
	"github.com/manash/vidgen/internal/display"
	"github.com/manash/vidgen/internal/media"
	"github.com/manash/vidgen/internal/pricing"
	"github.com/manash/vidgen/internal/session"
	"github.com/manash/vidgen/pkg/models"
)

// Generator dispatches a configured request and blocks until the video is
// ready.
type Generator interface {
	Generate(ctx context.Context, req *models.VideoRequest) (*models.Response, error)
}

type REPL struct {
	in         io.Reader
	out        io.Writer
	err        io.Writer
	generator  Generator
	catalog    *models.Catalog
	resolver   *pricing.Resolver
	ledger     *credits.Ledger
	sessionMgr *session.Manager
	renderer   *display.Renderer
	saver      *media.Saver
	selection  models.Selection
	refVideo   []byte
	commands   map[string]Command
	running    bool
}

type Config struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	Generator  Generator
	Catalog    *models.Catalog
	Resolver   *pricing.Resolver
	Ledger     *credits.Ledger
	SessionMgr *session.Manager
	Renderer   *display.Renderer
	Saver      *media.Saver
}

func New(cfg *Config) *REPL {
	r := &REPL{
		in:         cfg.In,
		out:        cfg.Out,
		err:        cfg.Err,
		generator:  cfg.Generator,
		catalog:    cfg.Catalog,
		resolver:   cfg.Resolver,
		ledger:     cfg.Ledger,
		sessionMgr: cfg.SessionMgr,
		renderer:   cfg.Renderer,
		saver:      cfg.Saver,
		commands:   make(map[string]Command),
	}
	if caps, ok := r.catalog.Get(r.sessionMgr.GetModel()); ok {
		r.selection = models.DefaultSelection(caps)
	}
	r.registerCommands()
	return r
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	scanner := bufio.NewScanner(r.in)
	for r.running {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

func (r *REPL) Stop() {
	r.running = false
}

// caps returns the capabilities of the currently selected model.
func (r *REPL) caps() (*models.ModelCapabilities, error) {
	model := r.sessionMgr.GetModel()
	caps, ok := r.catalog.Get(model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrModelNotFound, model)
	}
	return caps, nil
}

// showPrice re-resolves and prints the price for the current selection. Every
// selection-changing command ends here.
func (r *REPL) showPrice() {
	price, err := r.resolver.Resolve(r.sessionMgr.GetModel(), r.selection)
	if err != nil {
		fmt.Fprintf(r.err, "Warning: %v\n", err)
	}
	if price.RatePending() {
		fmt.Fprintf(r.out, "Price: %s (set a reference video for a total)\n", price)
		return
	}
	fmt.Fprintf(r.out, "Price: %s (%d credits)\n", price, pricing.Credits(price.Amount))
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "vidgen interactive mode")
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	fmt.Fprintf(r.out, "vidgen [%s]> ", r.sessionMgr.GetModel())
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
