package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/manash/vidgen/internal/batch"
	"github.com/manash/vidgen/internal/coordinator"
	"github.com/manash/vidgen/internal/credits"
	"github.com/manash/vidgen/internal/display"
	"github.com/manash/vidgen/internal/keys"
	"github.com/manash/vidgen/internal/pricing"
	"github.com/manash/vidgen/internal/session"
	"github.com/manash/vidgen/pkg/models"
)

func newModelsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "models [name]",
		Short: "List available models or show one model's options",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			renderer := display.New(app.Out)

			if len(args) == 1 {
				caps, ok := app.Catalog.Get(args[0])
				if !ok {
					return fmt.Errorf("unknown model %q: available models: %v", args[0], app.Catalog.List())
				}
				renderer.Model(caps)
				return nil
			}

			list := make([]*models.ModelCapabilities, 0, app.Catalog.Len())
			for _, name := range app.Catalog.List() {
				caps, _ := app.Catalog.Get(name)
				list = append(list, caps)
			}
			renderer.Models(list)
			return nil
		},
	}
}

// newPriceCmd resolves a price without generating anything, so the cost of a
// configuration can be checked before spending credits.
func newPriceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Resolve the price of a configuration without generating",
		RunE: func(cmd *cobra.Command, _ []string) error {
			caps, ok := app.Catalog.Get(flagModel)
			if !ok {
				return fmt.Errorf("unknown model %q: available models: %v", flagModel, app.Catalog.List())
			}

			sel, err := selectionFromFlags(cmd, caps)
			if err != nil {
				return err
			}

			// A reference video is only probed for its duration here; the
			// data is not needed to price the job.
			if flagRefVideo != "" {
				req := &models.VideoRequest{}
				if err := attachMedia(req, caps); err != nil {
					return err
				}
				sel.ReferenceSeconds = req.ReferenceSeconds
			}

			price, err := pricing.NewResolver(app.Catalog).Resolve(caps.Name, sel)
			if err != nil {
				return err
			}

			display.New(app.Out).Price(caps.Name, sel, caps, price)
			return nil
		},
	}
	addSelectionFlags(cmd)
	return cmd
}

func newCreditsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Show the credit balance",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withLedger(app, func(ctx context.Context, ledger *credits.Ledger, renderer *display.Renderer) error {
				balance, err := ledger.Balance(ctx)
				if err != nil {
					return err
				}
				renderer.Balance(balance)
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <amount>",
		Short: "Add credits to the balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount: %s", args[0])
			}
			return withLedger(app, func(ctx context.Context, ledger *credits.Ledger, renderer *display.Renderer) error {
				if err := ledger.Add(ctx, amount, "top-up"); err != nil {
					return err
				}
				balance, err := ledger.Balance(ctx)
				if err != nil {
					return err
				}
				renderer.Balance(balance)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "List recent credit movements",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withLedger(app, func(ctx context.Context, ledger *credits.Ledger, renderer *display.Renderer) error {
				entries, err := ledger.History(ctx, 50)
				if err != nil {
					return err
				}
				balance, err := ledger.Balance(ctx)
				if err != nil {
					return err
				}
				renderer.Ledger(entries, balance)
				return nil
			})
		},
	})

	return cmd
}

func withLedger(app *App, fn func(context.Context, *credits.Ledger, *display.Renderer) error) error {
	store, err := app.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()
	return fn(context.Background(), credits.NewLedger(store), display.New(app.Out))
}

func newUsageCmd(app *App) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show spend summaries",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := app.NewStore()
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()

			ctx := context.Background()
			renderer := display.New(app.Out)

			var total *session.SpendSummary
			switch period {
			case "", "total":
				total, err = store.GetTotalSpend(ctx)
			case "today":
				start, end := dayRange(time.Now(), 1)
				total, err = store.GetSpendByDateRange(ctx, start, end)
			case "week":
				start, end := dayRange(time.Now(), 7)
				total, err = store.GetSpendByDateRange(ctx, start, end)
			case "month":
				start, end := dayRange(time.Now(), 30)
				total, err = store.GetSpendByDateRange(ctx, start, end)
			default:
				return fmt.Errorf("unknown period %q: use today, week, month, or total", period)
			}
			if err != nil {
				return err
			}

			byModel, err := store.GetSpendByModel(ctx)
			if err != nil {
				return err
			}

			renderer.Usage(total, byModel)
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "total", "period to summarize (today, week, month, total)")
	return cmd
}

// dayRange returns the half-open interval covering the last n calendar days,
// ending at the start of tomorrow.
func dayRange(now time.Time, days int) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today.Add(-time.Duration(days-1) * 24 * time.Hour), today.Add(24 * time.Hour)
}

func newSessionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List saved sessions",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := app.NewStore()
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()

			sessions, err := store.ListSessions(context.Background())
			if err != nil {
				return err
			}
			display.New(app.Out).Sessions(sessions)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "history <id>",
		Short: "Show the generations recorded in a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := app.NewStore()
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()

			ctx := context.Background()
			id, err := resolveSessionID(ctx, store, args[0])
			if err != nil {
				return err
			}

			gens, err := store.ListGenerations(ctx, id)
			if err != nil {
				return err
			}
			display.New(app.Out).History(gens)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session and its recorded generations",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := app.NewStore()
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()

			ctx := context.Background()
			id, err := resolveSessionID(ctx, store, args[0])
			if err != nil {
				return err
			}

			if err := store.DeleteSession(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Deleted session %s\n", id[:8])
			return nil
		},
	})

	return cmd
}

func resolveSessionID(ctx context.Context, store *session.Store, prefix string) (string, error) {
	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return "", err
	}
	for _, sess := range sessions {
		if strings.HasPrefix(sess.ID, prefix) {
			return sess.ID, nil
		}
	}
	return "", fmt.Errorf("session not found: %s", prefix)
}

func newBatchCmd(app *App) *cobra.Command {
	var (
		outputDir   string
		parallel    int
		stopOnError bool
		delayMs     int
	)

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Generate videos from a prompt file (.txt or .json)",
		Long: `Generate one video per prompt in a file.

A .txt file holds one prompt per line; blank lines and lines starting
with # are skipped. A .json file holds an array of items with optional
per-item model, aspect_ratio, resolution, and seconds overrides.

Each item is priced and charged individually, so a failed or
unaffordable item does not affect the others.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			items, err := batch.ParseFile(args[0])
			if err != nil {
				return err
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

			store, err := app.NewStore()
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()

			proc := batch.NewProcessor(generator, app.NewSaver(), app.Catalog,
				pricing.NewResolver(app.Catalog), credits.NewLedger(store), app.Out, app.Err)

			opts := &batch.Options{
				OutputDir:    outputDir,
				DefaultModel: flagModel,
				Audio:        flagAudio,
				Parallel:     parallel,
				StopOnError:  stopOnError,
				DelayMs:      delayMs,
			}

			fmt.Fprintf(app.Out, "Processing %d prompts from %s\n\n", len(items), args[0])

			results, procErr := proc.Process(ctx, items, opts)
			proc.PrintSummary(results)
			return procErr
		},
	}

	cmd.Flags().StringVarP(&flagModel, "model", "m", "veo-3", "default model for items without one")
	cmd.Flags().BoolVar(&flagAudio, "audio", true, "generate audio (models that support it)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "directory to save videos in")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "number of parallel generations")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "stop the batch at the first failure")
	cmd.Flags().IntVar(&delayMs, "delay", 0, "delay between sequential items in milliseconds")
	cmd.Flags().StringVar(&flagAPIKey, "api-key", "", "API key (defaults to stored key, then VIDGEN_API_KEY)")

	return cmd
}

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored API keys",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [key]",
		Short: "Store the API key (prompts when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				entered, err := promptForKey(app)
				if err != nil {
					return err
				}
				key = entered
			}
			if key == "" {
				return fmt.Errorf("key cannot be empty")
			}

			store, err := keys.NewStore()
			if err != nil {
				return err
			}
			if err := store.Set("vidgen", key); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Stored key %s in %s\n", keys.MaskKey(key), store.Path())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the stored API key (masked)",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := keys.NewStore()
			if err != nil {
				return err
			}
			key, err := store.Get("vidgen")
			if err != nil {
				return err
			}
			if key == "" {
				fmt.Fprintln(app.Out, "No key stored.")
				return nil
			}
			fmt.Fprintln(app.Out, keys.MaskKey(key))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Delete the stored API key",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := keys.NewStore()
			if err != nil {
				return err
			}
			if err := store.Delete("vidgen"); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, "Key deleted.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored key names",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := keys.NewStore()
			if err != nil {
				return err
			}
			names, err := store.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(app.Out, "No keys stored.")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(app.Out, name)
			}
			return nil
		},
	})

	return cmd
}

// promptForKey reads the key without echo when stdin is a terminal, and falls
// back to a plain line read otherwise.
func promptForKey(app *App) (string, error) {
	fmt.Fprint(app.Out, "API key: ")

	if f, ok := app.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		entered, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(app.Out)
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return strings.TrimSpace(string(entered)), nil
	}

	var line string
	if _, err := fmt.Fscanln(app.In, &line); err != nil {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}
