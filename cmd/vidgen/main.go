package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/manash/vidgen/internal/catalog"
	"github.com/manash/vidgen/internal/coordinator"
	"github.com/manash/vidgen/internal/credits"
	"github.com/manash/vidgen/internal/display"
	"github.com/manash/vidgen/internal/keys"
	"github.com/manash/vidgen/internal/media"
	"github.com/manash/vidgen/internal/pricing"
	"github.com/manash/vidgen/internal/repl"
	"github.com/manash/vidgen/internal/session"
	"github.com/manash/vidgen/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagModel      string
	flagAspect     string
	flagResolution string
	flagDuration   int
	flagAudio      bool
	flagMode       string
	flagTier       string
	flagRefImage   string
	flagFirstFrame string
	flagLastFrame  string
	flagRefVideo   string
	flagOutput     string
	flagAPIKey     string
)

// App carries every dependency the commands need, so tests can swap the
// coordinator and the store for fakes.
type App struct {
	Out          io.Writer
	Err          io.Writer
	In           io.Reader
	Catalog      *models.Catalog
	GetEnv       func(string) string
	NewGenerator func(cfg *coordinator.Config) (repl.Generator, error)
	NewStore     func() (*session.Store, error)
	NewSaver     func() *media.Saver
}

func DefaultApp() (*App, error) {
	cat, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load model catalog: %w", err)
	}

	return &App{
		Out:     os.Stdout,
		Err:     os.Stderr,
		In:      os.Stdin,
		Catalog: cat,
		GetEnv:  os.Getenv,
		NewGenerator: func(cfg *coordinator.Config) (repl.Generator, error) {
			return coordinator.New(cfg)
		},
		NewStore: session.NewStore,
		NewSaver: media.NewSaver,
	}, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app, err := DefaultApp()
	if err != nil {
		return err
	}
	return newRootCmd(app).Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vidgen [prompt]",
		Short: "Generate videos with AI video models",
		Long: `vidgen is a CLI tool for generating videos with AI video models.

The price of a generation depends on the model and the selected aspect
ratio, resolution, and duration. Use 'vidgen price' to see the cost of a
configuration before spending credits on it.

Examples:
  vidgen "a fox running through snow"
  vidgen -m veo-3 -a 9:16 -d 8 --audio=false "city timelapse"
  vidgen -m kling-2.1 --mode motion-control --tier pro --ref-video dance.mp4
  vidgen price -m veo-3 -a 9:16 -r 1080p -d 8`,
		Args:    cobra.MaximumNArgs(1),
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, app)
		},
	}

	addSelectionFlags(cmd)
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output filename")
	cmd.Flags().StringVar(&flagAPIKey, "api-key", "", "API key (defaults to stored key, then VIDGEN_API_KEY)")

	cmd.AddCommand(
		newModelsCmd(app),
		newPriceCmd(app),
		newCreditsCmd(app),
		newUsageCmd(app),
		newSessionsCmd(app),
		newKeysCmd(app),
		newBatchCmd(app),
		newReplCmd(app),
	)

	return cmd
}

func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagModel, "model", "m", "veo-3", "model to use (see 'vidgen models')")
	cmd.Flags().StringVarP(&flagAspect, "aspect", "a", "", "aspect ratio (e.g. 16:9)")
	cmd.Flags().StringVarP(&flagResolution, "resolution", "r", "", "resolution (e.g. 720p)")
	cmd.Flags().IntVarP(&flagDuration, "duration", "d", 0, "clip duration in seconds")
	cmd.Flags().BoolVar(&flagAudio, "audio", true, "generate audio (models that support it)")
	cmd.Flags().StringVar(&flagMode, "mode", "", "generation mode (text-to-video, image-to-video, frame-images, motion-control)")
	cmd.Flags().StringVar(&flagTier, "tier", "", "motion control tier")
	cmd.Flags().StringVar(&flagRefImage, "ref-image", "", "reference image for image-to-video")
	cmd.Flags().StringVar(&flagFirstFrame, "first-frame", "", "first frame image for frame-images mode")
	cmd.Flags().StringVar(&flagLastFrame, "last-frame", "", "last frame image for frame-images mode")
	cmd.Flags().StringVar(&flagRefVideo, "ref-video", "", "reference video for motion-control mode")
}

// selectionFromFlags turns the CLI flags into a Selection against the model's
// option lists. A flag naming an option the model does not offer is an error
// rather than a silent reset.
func selectionFromFlags(cmd *cobra.Command, caps *models.ModelCapabilities) (models.Selection, error) {
	sel := models.DefaultSelection(caps)

	if flagAspect != "" {
		idx := indexOf(caps.AspectRatios, flagAspect)
		if idx < 0 {
			return sel, fmt.Errorf("%w: %s offers %v", models.ErrInvalidAspectRatio, caps.Name, caps.AspectRatios)
		}
		sel.AspectIndex = idx
	}
	if flagResolution != "" {
		idx := indexOf(caps.Resolutions, flagResolution)
		if idx < 0 {
			return sel, fmt.Errorf("%w: %s offers %v", models.ErrInvalidResolution, caps.Name, caps.Resolutions)
		}
		sel.ResolutionIndex = idx
	}
	if flagDuration > 0 {
		idx := -1
		for i, d := range caps.Durations {
			if d == flagDuration {
				idx = i
			}
		}
		if idx < 0 {
			return sel, fmt.Errorf("%w: %s offers %v", models.ErrInvalidDuration, caps.Name, caps.Durations)
		}
		sel.DurationIndex = idx
	}
	if cmd.Flags().Changed("audio") {
		if flagAudio && !caps.SupportsAudio {
			return sel, fmt.Errorf("%w: %s", models.ErrAudioNotSupported, caps.Name)
		}
		sel.Audio = flagAudio
	}
	if flagMode != "" {
		mode := models.GenerationMode(flagMode)
		if !mode.IsValid() {
			return sel, fmt.Errorf("unknown mode: %s", flagMode)
		}
		if !caps.SupportsMode(mode) {
			return sel, fmt.Errorf("%w: %s does not support %s", models.ErrModeNotSupported, caps.Name, mode)
		}
		sel.Mode = mode
	}
	if flagTier != "" {
		idx := indexOf(caps.MotionTiers, flagTier)
		if idx < 0 {
			return sel, fmt.Errorf("%w: %s offers %v", models.ErrUnknownTier, caps.Name, caps.MotionTiers)
		}
		sel.TierIndex = idx
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

// attachMedia loads the reference media flags into the request and returns
// the probed reference video duration, if any.
func attachMedia(req *models.VideoRequest, caps *models.ModelCapabilities) error {
	if flagRefImage != "" {
		data, err := media.LoadImage(flagRefImage)
		if err != nil {
			return fmt.Errorf("reference image: %w", err)
		}
		req.ReferenceImage = data
	}
	if flagFirstFrame != "" {
		data, err := media.LoadImage(flagFirstFrame)
		if err != nil {
			return fmt.Errorf("first frame: %w", err)
		}
		req.FirstFrame = data
	}
	if flagLastFrame != "" {
		data, err := media.LoadImage(flagLastFrame)
		if err != nil {
			return fmt.Errorf("last frame: %w", err)
		}
		req.LastFrame = data
	}
	if flagRefVideo != "" {
		data, seconds, err := media.LoadVideo(flagRefVideo)
		if err != nil {
			return fmt.Errorf("reference video: %w", err)
		}
		if caps.MaxReferenceSeconds > 0 && seconds > caps.MaxReferenceSeconds {
			return fmt.Errorf("%w: %ds exceeds the %ds limit",
				models.ErrReferenceVideoTooLong, seconds, caps.MaxReferenceSeconds)
		}
		req.ReferenceVideo = data
		req.ReferenceSeconds = seconds
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string, app *App) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	prompt := ""
	if len(args) > 0 {
		prompt = args[0]
	}

	caps, ok := app.Catalog.Get(flagModel)
	if !ok {
		return fmt.Errorf("unknown model %q: available models: %v", flagModel, app.Catalog.List())
	}

	sel, err := selectionFromFlags(cmd, caps)
	if err != nil {
		return err
	}

	req := sel.Request(caps, prompt)
	if err := attachMedia(req, caps); err != nil {
		return err
	}
	sel.ReferenceSeconds = req.ReferenceSeconds

	if err := caps.Validate(req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	if flagOutput != "" {
		if err := media.ValidateSavePath(flagOutput); err != nil {
			return fmt.Errorf("invalid output path: %w", err)
		}
	}

	resolver := pricing.NewResolver(app.Catalog)
	price, err := resolver.Resolve(caps.Name, sel)
	if err != nil {
		return err
	}
	if price.RatePending() {
		return fmt.Errorf("motion control needs a reference video: use --ref-video")
	}

	store, err := app.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	ledger := credits.NewLedger(store)
	ok, err = ledger.CanAfford(ctx, price.Amount)
	if err != nil {
		return err
	}
	if !ok {
		balance, _ := ledger.Balance(ctx)
		return fmt.Errorf("insufficient credits: need %d, have %d (run 'vidgen credits add <amount>')",
			pricing.Credits(price.Amount), balance)
	}

	apiKey, _, err := keys.GetAPIKey(flagAPIKey, "vidgen", "VIDGEN_API_KEY")
	if err != nil {
		return err
	}

	cfg, err := coordinator.ConfigFromEnv()
	if err != nil {
		return err
	}
	cfg.APIKey = apiKey

	generator, err := app.NewGenerator(cfg)
	if err != nil {
		return fmt.Errorf("failed to create coordinator client: %w", err)
	}

	fmt.Fprintf(app.Out, "Generating with %s (%s)...\n", caps.Name, price)

	resp, err := generator.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	mgr := session.NewManager(store, caps.Name)
	if err := mgr.EnsureSession(ctx); err != nil {
		return err
	}

	savePath := flagOutput
	if savePath == "" {
		savePath = mgr.VideoPath()
	}

	saver := app.NewSaver()
	paths, err := saver.SaveAll(resp, savePath)
	if err != nil {
		return err
	}

	gen := &session.Generation{
		JobID:       resp.JobID,
		Prompt:      prompt,
		Model:       caps.Name,
		Mode:        string(sel.Mode),
		AspectRatio: sel.AspectRatio(caps),
		Resolution:  sel.Resolution(caps),
		Seconds:     sel.Seconds(caps),
		Audio:       sel.Audio,
		Tier:        sel.Tier(caps),
		VideoPath:   paths[0],
		CostUSD:     price.Amount.StringFixed(2),
		Credits:     pricing.Credits(price.Amount),
	}
	if err := mgr.AddGeneration(ctx, gen); err != nil {
		return fmt.Errorf("failed to record generation: %w", err)
	}

	remaining, err := ledger.Charge(ctx, price.Amount, caps.Name+" generation", gen.ID)
	if err != nil {
		fmt.Fprintf(app.Err, "Warning: failed to charge credits: %v\n", err)
	}

	for _, path := range paths {
		fmt.Fprintf(app.Out, "Saved: %s\n", path)
	}
	fmt.Fprintf(app.Out, "Cost: %s (%d credits, %d remaining)\n",
		price, pricing.Credits(price.Amount), remaining)
	return nil
}

func newReplCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start interactive mode",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			apiKey, _, err := keys.GetAPIKey(flagAPIKey, "vidgen", "VIDGEN_API_KEY")
			if err != nil {
				return err
			}
			cfg, err := coordinator.ConfigFromEnv()
			if err != nil {
				return err
			}
			cfg.APIKey = apiKey

			generator, err := app.NewGenerator(cfg)
			if err != nil {
				return err
			}

			store, err := app.NewStore()
			if err != nil {
				return err
			}
			defer store.Close()

			r := repl.New(&repl.Config{
				In:         app.In,
				Out:        app.Out,
				Err:        app.Err,
				Generator:  generator,
				Catalog:    app.Catalog,
				Resolver:   pricing.NewResolver(app.Catalog),
				Ledger:     credits.NewLedger(store),
				SessionMgr: session.NewManager(store, flagModel),
				Renderer:   display.New(app.Out),
				Saver:      app.NewSaver(),
			})
			return r.Run(ctx)
		},
	}
}
