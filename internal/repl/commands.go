package repl

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/manash/vidgen/internal/media"
	"github.com/manash/vidgen/internal/pricing"
	"github.com/manash/vidgen/internal/session"
	"github.com/manash/vidgen/pkg/models"
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func allCommands() []Command {
	return []Command{
		&ModelCommand{},
		&AspectCommand{},
		&ResolutionCommand{},
		&DurationCommand{},
		&AudioCommand{},
		&ModeCommand{},
		&TierCommand{},
		&RefVideoCommand{},
		&PriceCommand{},
		&CreditsCommand{},
		&GenerateCommand{},
		&ModelsCommand{},
		&SessionCommand{},
		&HistoryCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}
}

func (r *REPL) registerCommands() {
	for _, cmd := range allCommands() {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// pickOption resolves an argument against an option list, accepting either the
// label itself or a 1-based index.
func pickOption(options []string, arg string) (int, error) {
	for i, opt := range options {
		if strings.EqualFold(opt, arg) {
			return i, nil
		}
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(options) {
		return n - 1, nil
	}
	return 0, fmt.Errorf("no such option: %s (choose from %s)", arg, strings.Join(options, ", "))
}

func listOptions(r *REPL, options []string, selected int) {
	for i, opt := range options {
		marker := "  "
		if i == selected {
			marker = "> "
		}
		fmt.Fprintf(r.out, "%s[%d] %s\n", marker, i+1, opt)
	}
}

// ModelCommand switches the active model; the selection is clamped so stale
// indices never survive a switch.
type ModelCommand struct{}

func (c *ModelCommand) Name() string        { return "model" }
func (c *ModelCommand) Aliases() []string   { return []string{"m"} }
func (c *ModelCommand) Description() string { return "Get or set the current model" }
func (c *ModelCommand) Usage() string       { return "model [name]" }

func (c *ModelCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Current model: %s\n", r.sessionMgr.GetModel())
		return nil
	}

	name := args[0]
	caps, ok := r.catalog.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrModelNotFound, name)
	}

	r.sessionMgr.SetModel(name)
	r.selection.Clamp(caps)
	fmt.Fprintf(r.out, "Model set to: %s\n", name)
	r.showPrice()
	return nil
}

// AspectCommand picks an aspect ratio from the model's option list.
type AspectCommand struct{}

func (c *AspectCommand) Name() string        { return "aspect" }
func (c *AspectCommand) Aliases() []string   { return []string{"a", "ar"} }
func (c *AspectCommand) Description() string { return "Get or set the aspect ratio" }
func (c *AspectCommand) Usage() string       { return "aspect [ratio]" }

func (c *AspectCommand) Execute(_ context.Context, r *REPL, args []string) error {
	caps, err := r.caps()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		listOptions(r, caps.AspectRatios, r.selection.AspectIndex)
		return nil
	}

	idx, err := pickOption(caps.AspectRatios, args[0])
	if err != nil {
		return err
	}
	r.selection.AspectIndex = idx
	r.showPrice()
	return nil
}

// ResolutionCommand picks a resolution from the model's option list.
type ResolutionCommand struct{}

func (c *ResolutionCommand) Name() string        { return "resolution" }
func (c *ResolutionCommand) Aliases() []string   { return []string{"res", "r"} }
func (c *ResolutionCommand) Description() string { return "Get or set the resolution" }
func (c *ResolutionCommand) Usage() string       { return "resolution [label]" }

func (c *ResolutionCommand) Execute(_ context.Context, r *REPL, args []string) error {
	caps, err := r.caps()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		listOptions(r, caps.Resolutions, r.selection.ResolutionIndex)
		return nil
	}

	idx, err := pickOption(caps.Resolutions, args[0])
	if err != nil {
		return err
	}
	r.selection.ResolutionIndex = idx
	r.showPrice()
	return nil
}

// DurationCommand picks a duration from the model's option list.
type DurationCommand struct{}

func (c *DurationCommand) Name() string        { return "duration" }
func (c *DurationCommand) Aliases() []string   { return []string{"d", "dur"} }
func (c *DurationCommand) Description() string { return "Get or set the clip duration" }
func (c *DurationCommand) Usage() string       { return "duration [seconds]" }

func (c *DurationCommand) Execute(_ context.Context, r *REPL, args []string) error {
	caps, err := r.caps()
	if err != nil {
		return err
	}

	labels := make([]string, len(caps.Durations))
	for i, d := range caps.Durations {
		labels[i] = strconv.Itoa(d)
	}

	if len(args) == 0 {
		for i, d := range caps.Durations {
			marker := "  "
			if i == r.selection.DurationIndex {
				marker = "> "
			}
			fmt.Fprintf(r.out, "%s[%d] %ds\n", marker, i+1, d)
		}
		return nil
	}

	arg := strings.TrimSuffix(args[0], "s")
	for i, label := range labels {
		if label == arg {
			r.selection.DurationIndex = i
			r.showPrice()
			return nil
		}
	}
	return fmt.Errorf("%w: %s (choose from %s)", models.ErrInvalidDuration, args[0], strings.Join(labels, ", "))
}

// AudioCommand toggles the audio add-on.
type AudioCommand struct{}

func (c *AudioCommand) Name() string        { return "audio" }
func (c *AudioCommand) Aliases() []string   { return nil }
func (c *AudioCommand) Description() string { return "Toggle audio generation on or off" }
func (c *AudioCommand) Usage() string       { return "audio [on|off]" }

func (c *AudioCommand) Execute(_ context.Context, r *REPL, args []string) error {
	caps, err := r.caps()
	if err != nil {
		return err
	}
	if !caps.SupportsAudio {
		return fmt.Errorf("%w: %s", models.ErrAudioNotSupported, caps.Name)
	}

	switch {
	case len(args) == 0:
		r.selection.Audio = !r.selection.Audio
	case strings.EqualFold(args[0], "on"):
		r.selection.Audio = true
	case strings.EqualFold(args[0], "off"):
		r.selection.Audio = false
	default:
		return fmt.Errorf("usage: %s", c.Usage())
	}

	state := "off"
	if r.selection.Audio {
		state = "on"
	}
	fmt.Fprintf(r.out, "Audio: %s\n", state)
	r.showPrice()
	return nil
}

// ModeCommand switches the generation mode.
type ModeCommand struct{}

func (c *ModeCommand) Name() string        { return "mode" }
func (c *ModeCommand) Aliases() []string   { return nil }
func (c *ModeCommand) Description() string { return "Get or set the generation mode" }
func (c *ModeCommand) Usage() string       { return "mode [name]" }

func (c *ModeCommand) Execute(_ context.Context, r *REPL, args []string) error {
	caps, err := r.caps()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		for _, m := range caps.Modes {
			marker := "  "
			if m == r.selection.Mode {
				marker = "> "
			}
			fmt.Fprintf(r.out, "%s%s\n", marker, m)
		}
		return nil
	}

	mode := models.GenerationMode(strings.ToLower(args[0]))
	if !mode.IsValid() {
		return fmt.Errorf("unknown mode: %s", args[0])
	}
	if !caps.SupportsMode(mode) {
		return fmt.Errorf("%w: %s does not support %s", models.ErrModeNotSupported, caps.Name, mode)
	}

	r.selection.Mode = mode
	fmt.Fprintf(r.out, "Mode: %s\n", mode)
	r.showPrice()
	return nil
}

// TierCommand picks a motion control tier.
type TierCommand struct{}

func (c *TierCommand) Name() string        { return "tier" }
func (c *TierCommand) Aliases() []string   { return nil }
func (c *TierCommand) Description() string { return "Get or set the motion control tier" }
func (c *TierCommand) Usage() string       { return "tier [name]" }

func (c *TierCommand) Execute(_ context.Context, r *REPL, args []string) error {
	caps, err := r.caps()
	if err != nil {
		return err
	}
	if len(caps.MotionTiers) == 0 {
		return fmt.Errorf("%w: %s has no motion tiers", models.ErrUnknownTier, caps.Name)
	}

	if len(args) == 0 {
		listOptions(r, caps.MotionTiers, r.selection.TierIndex)
		return nil
	}

	idx, err := pickOption(caps.MotionTiers, args[0])
	if err != nil {
		return err
	}
	r.selection.TierIndex = idx
	r.showPrice()
	return nil
}

// RefVideoCommand attaches a reference video for motion control and records
// its probed duration, which turns the per-second rate into a total.
type RefVideoCommand struct{}

func (c *RefVideoCommand) Name() string        { return "refvideo" }
func (c *RefVideoCommand) Aliases() []string   { return []string{"ref"} }
func (c *RefVideoCommand) Description() string { return "Attach a reference video for motion control" }
func (c *RefVideoCommand) Usage() string       { return "refvideo <path>" }

func (c *RefVideoCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	caps, err := r.caps()
	if err != nil {
		return err
	}

	data, seconds, err := media.LoadVideo(args[0])
	if err != nil {
		return err
	}
	if caps.MaxReferenceSeconds > 0 && seconds > caps.MaxReferenceSeconds {
		return fmt.Errorf("%w: %ds exceeds the %ds limit",
			models.ErrReferenceVideoTooLong, seconds, caps.MaxReferenceSeconds)
	}

	r.refVideo = data
	r.selection.ReferenceSeconds = seconds
	fmt.Fprintf(r.out, "Reference video: %s (%ds)\n", args[0], seconds)
	r.showPrice()
	return nil
}

// PriceCommand renders the full price breakdown for the current selection.
type PriceCommand struct{}

func (c *PriceCommand) Name() string        { return "price" }
func (c *PriceCommand) Aliases() []string   { return []string{"$"} }
func (c *PriceCommand) Description() string { return "Show the resolved price for the current selection" }
func (c *PriceCommand) Usage() string       { return "price" }

func (c *PriceCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	caps, err := r.caps()
	if err != nil {
		return err
	}

	price, err := r.resolver.Resolve(caps.Name, r.selection)
	if err != nil {
		return err
	}
	r.renderer.Price(caps.Name, r.selection, caps, price)
	return nil
}

// CreditsCommand shows the balance, tops up, or lists the ledger.
type CreditsCommand struct{}

func (c *CreditsCommand) Name() string        { return "credits" }
func (c *CreditsCommand) Aliases() []string   { return nil }
func (c *CreditsCommand) Description() string { return "Show balance, add credits, or list the ledger" }
func (c *CreditsCommand) Usage() string       { return "credits [add <amount>|history]" }

func (c *CreditsCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		balance, err := r.ledger.Balance(ctx)
		if err != nil {
			return err
		}
		r.renderer.Balance(balance)
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: credits add <amount>")
		}
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount: %s", args[1])
		}
		if err := r.ledger.Add(ctx, amount, "top-up"); err != nil {
			return err
		}
		balance, err := r.ledger.Balance(ctx)
		if err != nil {
			return err
		}
		r.renderer.Balance(balance)
		return nil
	case "history":
		entries, err := r.ledger.History(ctx, 20)
		if err != nil {
			return err
		}
		balance, err := r.ledger.Balance(ctx)
		if err != nil {
			return err
		}
		r.renderer.Ledger(entries, balance)
		return nil
	default:
		return fmt.Errorf("usage: %s", c.Usage())
	}
}

// GenerateCommand dispatches a generation with the current selection, charges
// the resolved price, and saves the result into the session's video directory.
type GenerateCommand struct{}

func (c *GenerateCommand) Name() string        { return "generate" }
func (c *GenerateCommand) Aliases() []string   { return []string{"gen", "g"} }
func (c *GenerateCommand) Description() string { return "Generate a video from a prompt" }
func (c *GenerateCommand) Usage() string       { return "generate <prompt>" }

func (c *GenerateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	caps, err := r.caps()
	if err != nil {
		return err
	}
	if len(args) == 0 && r.selection.Mode != models.ModeMotionControl {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	prompt := strings.Join(args, " ")

	price, err := r.resolver.Resolve(caps.Name, r.selection)
	if err != nil {
		return err
	}
	if price.RatePending() {
		return fmt.Errorf("motion control needs a reference video: use 'refvideo <path>'")
	}

	req := r.selection.Request(caps, prompt)
	req.ReferenceVideo = r.refVideo
	if err := caps.Validate(req); err != nil {
		return err
	}

	ok, err := r.ledger.CanAfford(ctx, price.Amount)
	if err != nil {
		return err
	}
	if !ok {
		balance, _ := r.ledger.Balance(ctx)
		return fmt.Errorf("insufficient credits: need %d, have %d (use 'credits add')",
			pricing.Credits(price.Amount), balance)
	}

	fmt.Fprintf(r.out, "Generating with %s (%s)...\n", caps.Name, price)

	resp, err := r.generator.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if err := r.sessionMgr.EnsureSession(ctx); err != nil {
		return err
	}

	videoPath := r.sessionMgr.VideoPath()
	paths, err := r.saver.SaveAll(resp, videoPath)
	if err != nil {
		return fmt.Errorf("failed to save video: %w", err)
	}

	gen := &session.Generation{
		JobID:       resp.JobID,
		Prompt:      prompt,
		Model:       caps.Name,
		Mode:        string(r.selection.Mode),
		AspectRatio: r.selection.AspectRatio(caps),
		Resolution:  r.selection.Resolution(caps),
		Seconds:     r.selection.Seconds(caps),
		Audio:       r.selection.Audio,
		Tier:        r.selection.Tier(caps),
		VideoPath:   paths[0],
		CostUSD:     price.Amount.StringFixed(2),
		Credits:     pricing.Credits(price.Amount),
	}
	if err := r.sessionMgr.AddGeneration(ctx, gen); err != nil {
		return fmt.Errorf("failed to record generation: %w", err)
	}

	remaining, err := r.ledger.Charge(ctx, price.Amount, caps.Name+" generation", gen.ID)
	if err != nil {
		fmt.Fprintf(r.err, "Warning: failed to charge credits: %v\n", err)
	}

	fmt.Fprintf(r.out, "Saved: %s\n", paths[0])
	fmt.Fprintf(r.out, "Cost: %s (%d credits, %d remaining)\n",
		price, pricing.Credits(price.Amount), remaining)
	return nil
}

// ModelsCommand lists the catalog.
type ModelsCommand struct{}

func (c *ModelsCommand) Name() string        { return "models" }
func (c *ModelsCommand) Aliases() []string   { return []string{"ls"} }
func (c *ModelsCommand) Description() string { return "List available models" }
func (c *ModelsCommand) Usage() string       { return "models" }

func (c *ModelsCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	list := make([]*models.ModelCapabilities, 0, r.catalog.Len())
	for _, name := range r.catalog.List() {
		caps, _ := r.catalog.Get(name)
		list = append(list, caps)
	}
	r.renderer.Models(list)
	return nil
}

// SessionCommand manages sessions.
type SessionCommand struct{}

func (c *SessionCommand) Name() string        { return "session" }
func (c *SessionCommand) Aliases() []string   { return []string{"sess"} }
func (c *SessionCommand) Description() string { return "Manage sessions (list, load, new, rename)" }
func (c *SessionCommand) Usage() string       { return "session <list|load|new|rename> [args]" }

func (c *SessionCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	subCmd := strings.ToLower(args[0])
	subArgs := args[1:]

	switch subCmd {
	case "list":
		sessions, err := r.sessionMgr.ListSessions(ctx)
		if err != nil {
			return err
		}
		r.renderer.Sessions(sessions)
		return nil
	case "load":
		if len(subArgs) == 0 {
			return fmt.Errorf("usage: session load <id>")
		}
		return c.load(ctx, r, subArgs[0])
	case "new":
		name := strings.Join(subArgs, " ")
		sess, err := r.sessionMgr.StartNew(ctx, name)
		if err != nil {
			return err
		}
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(r.out, "Created new session: %s (%s)\n", name, sess.ID[:8])
		return nil
	case "rename":
		if len(subArgs) == 0 {
			return fmt.Errorf("usage: session rename <name>")
		}
		name := strings.Join(subArgs, " ")
		if err := r.sessionMgr.RenameSession(ctx, name); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Session renamed to: %s\n", name)
		return nil
	default:
		return fmt.Errorf("unknown session command: %s", subCmd)
	}
}

func (c *SessionCommand) load(ctx context.Context, r *REPL, id string) error {
	sessions, err := r.sessionMgr.ListSessions(ctx)
	if err != nil {
		return err
	}

	var fullID string
	for _, sess := range sessions {
		if strings.HasPrefix(sess.ID, id) {
			fullID = sess.ID
			break
		}
	}
	if fullID == "" {
		return fmt.Errorf("session not found: %s", id)
	}

	if err := r.sessionMgr.Load(ctx, fullID); err != nil {
		return err
	}

	sess := r.sessionMgr.Current()
	name := sess.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(r.out, "Loaded session: %s (%s)\n", name, sess.ID[:8])

	if caps, ok := r.catalog.Get(sess.Model); ok {
		r.selection.Clamp(caps)
	}
	return nil
}

// HistoryCommand shows the generations recorded for the active session.
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Aliases() []string   { return []string{"h", "hist"} }
func (c *HistoryCommand) Description() string { return "Show generation history for the session" }
func (c *HistoryCommand) Usage() string       { return "history" }

func (c *HistoryCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	history, err := r.sessionMgr.History(ctx)
	if err != nil {
		return err
	}
	r.renderer.History(history)
	return nil
}

// HelpCommand shows available commands.
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out)

	for _, cmd := range allCommands() {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = fmt.Sprintf(" (%s)", strings.Join(cmd.Aliases(), ", "))
		}
		fmt.Fprintf(r.out, "  %-12s%s\n", cmd.Name()+aliases, cmd.Description())
		fmt.Fprintf(r.out, "               Usage: %s\n", cmd.Usage())
	}

	return nil
}

// QuitCommand exits the REPL.
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit interactive mode" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Goodbye!")
	r.Stop()
	return nil
}
