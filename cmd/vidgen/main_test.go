package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/manash/vidgen/internal/catalog"
	"github.com/manash/vidgen/internal/coordinator"
	"github.com/manash/vidgen/internal/credits"
	"github.com/manash/vidgen/internal/media"
	"github.com/manash/vidgen/internal/repl"
	"github.com/manash/vidgen/internal/session"
	"github.com/manash/vidgen/pkg/models"
)

type fakeGenerator struct {
	lastReq *models.VideoRequest
	lastCfg *coordinator.Config
	err     error
	called  bool
}

func (f *fakeGenerator) Generate(_ context.Context, req *models.VideoRequest) (*models.Response, error) {
	f.called = true
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Response{
		JobID: "job-42",
		Videos: []models.GeneratedVideo{
			{Data: []byte("video data"), Seconds: req.Seconds},
		},
	}, nil
}

func resetFlags() {
	flagModel = "veo-3"
	flagAspect = ""
	flagResolution = ""
	flagDuration = 0
	flagAudio = true
	flagMode = ""
	flagTier = ""
	flagRefImage = ""
	flagFirstFrame = ""
	flagLastFrame = ""
	flagRefVideo = ""
	flagOutput = ""
	flagAPIKey = ""
}

type cmdFixture struct {
	app    *App
	gen    *fakeGenerator
	dbPath string
	out    *bytes.Buffer
}

func newFixture(t *testing.T) *cmdFixture {
	t.Helper()
	tmpDir := t.TempDir()

	origHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	t.Cleanup(func() { os.Setenv("HOME", origHome) })

	t.Setenv("VIDGEN_CONFIG_DIR", filepath.Join(tmpDir, "config"))
	t.Setenv("VIDGEN_API_KEY", "vk-test")

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}

	gen := &fakeGenerator{}
	dbPath := filepath.Join(tmpDir, "test.db")
	var out bytes.Buffer

	app := &App{
		Out:     &out,
		Err:     &out,
		In:      strings.NewReader(""),
		Catalog: cat,
		GetEnv:  os.Getenv,
		NewGenerator: func(cfg *coordinator.Config) (repl.Generator, error) {
			gen.lastCfg = cfg
			return gen, nil
		},
		NewStore: func() (*session.Store, error) {
			return session.NewStoreWithPath(dbPath)
		},
		NewSaver: media.NewSaver,
	}

	return &cmdFixture{app: app, gen: gen, dbPath: dbPath, out: &out}
}

func (f *cmdFixture) run(args ...string) error {
	resetFlags()
	root := newRootCmd(f.app)
	root.SetArgs(args)
	root.SetOut(f.out)
	root.SetErr(f.out)
	return root.Execute()
}

func (f *cmdFixture) topUp(t *testing.T, amount int64) {
	t.Helper()
	store, err := session.NewStoreWithPath(f.dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := credits.NewLedger(store).Add(context.Background(), amount, "top-up"); err != nil {
		t.Fatal(err)
	}
}

func TestModelsCmd_List(t *testing.T) {
	f := newFixture(t)
	if err := f.run("models"); err != nil {
		t.Fatalf("models error = %v", err)
	}

	out := f.out.String()
	for _, name := range []string{"veo-3", "kling-2.1", "hailuo-02", "wan-2.2", "seedance-1.0"} {
		if !strings.Contains(out, name) {
			t.Errorf("output missing %s:\n%s", name, out)
		}
	}
}

func TestModelsCmd_Show(t *testing.T) {
	f := newFixture(t)
	if err := f.run("models", "kling-2.1"); err != nil {
		t.Fatalf("models error = %v", err)
	}

	out := f.out.String()
	for _, want := range []string{"Kling 2.1", "standard, pro", "30s", "$3.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestModelsCmd_Unknown(t *testing.T) {
	f := newFixture(t)
	if err := f.run("models", "gpt-video"); err == nil {
		t.Error("unknown model should error")
	}
}

func TestPriceCmd(t *testing.T) {
	f := newFixture(t)
	if err := f.run("price", "-m", "veo-3", "-a", "9:16", "-d", "8"); err != nil {
		t.Fatalf("price error = %v", err)
	}

	out := f.out.String()
	if !strings.Contains(out, "$4.00") || !strings.Contains(out, "400") {
		t.Errorf("output = %s", out)
	}
}

func TestPriceCmd_AudioOff(t *testing.T) {
	f := newFixture(t)
	if err := f.run("price", "-m", "veo-3", "-a", "9:16", "-d", "8", "--audio=false"); err != nil {
		t.Fatalf("price error = %v", err)
	}
	if !strings.Contains(f.out.String(), "$3.50") {
		t.Errorf("output = %s", f.out.String())
	}
}

func TestPriceCmd_FlatFallback(t *testing.T) {
	f := newFixture(t)
	// 9:16 at 1080p is not offered for veo-3, so the flat base applies.
	if err := f.run("price", "-m", "veo-3", "-a", "9:16", "-r", "1080p"); err != nil {
		t.Fatalf("price error = %v", err)
	}
	if !strings.Contains(f.out.String(), "$5.00") {
		t.Errorf("output = %s", f.out.String())
	}
}

func TestPriceCmd_MotionRate(t *testing.T) {
	f := newFixture(t)
	if err := f.run("price", "-m", "kling-2.1", "--mode", "motion-control", "--tier", "pro"); err != nil {
		t.Fatalf("price error = %v", err)
	}
	if !strings.Contains(f.out.String(), "$0.15/sec") {
		t.Errorf("output = %s", f.out.String())
	}
}

func TestPriceCmd_InvalidOption(t *testing.T) {
	f := newFixture(t)

	err := f.run("price", "-m", "veo-3", "-a", "4:3")
	if !errors.Is(err, models.ErrInvalidAspectRatio) {
		t.Errorf("error = %v, want ErrInvalidAspectRatio", err)
	}

	err = f.run("price", "-m", "veo-3", "-d", "12")
	if !errors.Is(err, models.ErrInvalidDuration) {
		t.Errorf("error = %v, want ErrInvalidDuration", err)
	}

	err = f.run("price", "-m", "kling-2.1", "--audio")
	if !errors.Is(err, models.ErrAudioNotSupported) {
		t.Errorf("error = %v, want ErrAudioNotSupported", err)
	}
}

func TestCreditsCmd(t *testing.T) {
	f := newFixture(t)

	if err := f.run("credits", "add", "1000"); err != nil {
		t.Fatalf("credits add error = %v", err)
	}
	if !strings.Contains(f.out.String(), "1000 credits") {
		t.Errorf("output = %s", f.out.String())
	}

	f.out.Reset()
	if err := f.run("credits"); err != nil {
		t.Fatalf("credits error = %v", err)
	}
	if !strings.Contains(f.out.String(), "1000 credits ($10.00)") {
		t.Errorf("output = %s", f.out.String())
	}

	f.out.Reset()
	if err := f.run("credits", "history"); err != nil {
		t.Fatalf("credits history error = %v", err)
	}
	if !strings.Contains(f.out.String(), "top-up") {
		t.Errorf("output = %s", f.out.String())
	}
}

func TestCreditsCmd_InvalidAmount(t *testing.T) {
	f := newFixture(t)
	if err := f.run("credits", "add", "ten"); err == nil {
		t.Error("non-numeric amount should error")
	}
	if err := f.run("credits", "add", "-5"); err == nil {
		t.Error("negative amount should error")
	}
}

func TestGenerate(t *testing.T) {
	f := newFixture(t)
	f.topUp(t, 1000)

	if err := f.run("-m", "veo-3", "-a", "9:16", "-d", "8", "a fox at dawn"); err != nil {
		t.Fatalf("generate error = %v", err)
	}

	if !f.gen.called {
		t.Fatal("generator should be called")
	}
	if f.gen.lastReq.AspectRatio != "9:16" || f.gen.lastReq.Seconds != 8 || !f.gen.lastReq.Audio {
		t.Errorf("request = %+v", f.gen.lastReq)
	}
	if f.gen.lastCfg.APIKey != "vk-test" {
		t.Errorf("APIKey = %s, want vk-test", f.gen.lastCfg.APIKey)
	}

	out := f.out.String()
	if !strings.Contains(out, "Saved: ") || !strings.Contains(out, "$4.00 (400 credits, 600 remaining)") {
		t.Errorf("output = %s", out)
	}

	// The generation and the charge are both recorded.
	store, err := session.NewStoreWithPath(f.dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	balance, err := store.Balance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 600 {
		t.Errorf("balance = %d, want 600", balance)
	}

	total, err := store.GetTotalSpend(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total.GenerationCount != 1 || total.TotalCredits != 400 {
		t.Errorf("spend = %+v", total)
	}
}

func TestGenerate_InsufficientCredits(t *testing.T) {
	f := newFixture(t)

	err := f.run("a fox at dawn")
	if err == nil || !strings.Contains(err.Error(), "insufficient credits") {
		t.Fatalf("error = %v, want insufficient credits", err)
	}
	if f.gen.called {
		t.Error("generator must not run on insufficient credits")
	}
}

func TestGenerate_UnknownModel(t *testing.T) {
	f := newFixture(t)
	if err := f.run("-m", "gpt-video", "a fox"); err == nil {
		t.Error("unknown model should error")
	}
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	f := newFixture(t)
	f.topUp(t, 1000)

	err := f.run("-m", "veo-3")
	if !errors.Is(err, models.ErrEmptyPrompt) {
		t.Fatalf("error = %v, want ErrEmptyPrompt", err)
	}
	if f.gen.called {
		t.Error("generator must not run without a prompt")
	}
}

func TestGenerate_MotionWithoutReference(t *testing.T) {
	f := newFixture(t)
	f.topUp(t, 1000)

	err := f.run("-m", "kling-2.1", "--mode", "motion-control")
	if err == nil || !strings.Contains(err.Error(), "--ref-video") {
		t.Fatalf("error = %v, want ref-video hint", err)
	}
	if f.gen.called {
		t.Error("generator must not run while the price is rate-pending")
	}
}

func TestGenerate_InvalidOutputPath(t *testing.T) {
	f := newFixture(t)
	f.topUp(t, 1000)

	if err := f.run("-o", "../escape.mp4", "a fox"); err == nil {
		t.Error("traversal output path should error")
	}
	if f.gen.called {
		t.Error("generator must not run with an invalid output path")
	}
}

func TestGenerate_CoordinatorFailure(t *testing.T) {
	f := newFixture(t)
	f.topUp(t, 1000)
	f.gen.err = errors.New("capacity exhausted")

	err := f.run("a fox at dawn")
	if err == nil || !strings.Contains(err.Error(), "capacity exhausted") {
		t.Fatalf("error = %v", err)
	}

	// A failed generation must not charge credits.
	store, serr := session.NewStoreWithPath(f.dbPath)
	if serr != nil {
		t.Fatal(serr)
	}
	defer store.Close()
	balance, berr := store.Balance(context.Background())
	if berr != nil {
		t.Fatal(berr)
	}
	if balance != 1000 {
		t.Errorf("balance = %d, want 1000", balance)
	}
}

func TestUsageCmd(t *testing.T) {
	f := newFixture(t)
	f.topUp(t, 1000)

	if err := f.run("-a", "9:16", "-d", "8", "a fox"); err != nil {
		t.Fatal(err)
	}

	f.out.Reset()
	if err := f.run("usage"); err != nil {
		t.Fatalf("usage error = %v", err)
	}
	out := f.out.String()
	if !strings.Contains(out, "400 credits") || !strings.Contains(out, "veo-3") {
		t.Errorf("output = %s", out)
	}

	f.out.Reset()
	if err := f.run("usage", "--period", "today"); err != nil {
		t.Fatalf("usage --period today error = %v", err)
	}
	if !strings.Contains(f.out.String(), "400 credits") {
		t.Errorf("output = %s", f.out.String())
	}

	if err := f.run("usage", "--period", "fortnight"); err == nil {
		t.Error("unknown period should error")
	}
}

func TestSessionsCmd(t *testing.T) {
	f := newFixture(t)
	f.topUp(t, 1000)

	if err := f.run("a fox at dawn"); err != nil {
		t.Fatal(err)
	}

	f.out.Reset()
	if err := f.run("sessions"); err != nil {
		t.Fatalf("sessions error = %v", err)
	}
	out := f.out.String()
	if !strings.Contains(out, "veo-3") {
		t.Errorf("output = %s", out)
	}

	// First column of the first data row is the shortened session id.
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		t.Fatalf("output = %s", out)
	}
	id := strings.Fields(lines[1])[0]

	f.out.Reset()
	if err := f.run("sessions", "history", id); err != nil {
		t.Fatalf("sessions history error = %v", err)
	}
	if !strings.Contains(f.out.String(), "a fox at dawn") {
		t.Errorf("output = %s", f.out.String())
	}

	f.out.Reset()
	if err := f.run("sessions", "delete", id); err != nil {
		t.Fatalf("sessions delete error = %v", err)
	}

	f.out.Reset()
	if err := f.run("sessions"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.out.String(), "No sessions.") {
		t.Errorf("output = %s", f.out.String())
	}
}

func TestKeysCmd(t *testing.T) {
	f := newFixture(t)

	if err := f.run("keys", "set", "vk-1234567890abcdef"); err != nil {
		t.Fatalf("keys set error = %v", err)
	}
	if strings.Contains(f.out.String(), "vk-1234567890abcdef") {
		t.Error("stored key must not be echoed in full")
	}

	f.out.Reset()
	if err := f.run("keys", "get"); err != nil {
		t.Fatalf("keys get error = %v", err)
	}
	if !strings.Contains(f.out.String(), "vk-1") || !strings.Contains(f.out.String(), "cdef") {
		t.Errorf("output = %s", f.out.String())
	}

	f.out.Reset()
	if err := f.run("keys", "list"); err != nil {
		t.Fatalf("keys list error = %v", err)
	}
	if !strings.Contains(f.out.String(), "vidgen") {
		t.Errorf("output = %s", f.out.String())
	}

	if err := f.run("keys", "delete"); err != nil {
		t.Fatalf("keys delete error = %v", err)
	}

	f.out.Reset()
	if err := f.run("keys", "get"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.out.String(), "No key stored.") {
		t.Errorf("output = %s", f.out.String())
	}
}

func TestKeysCmd_SetFromStdin(t *testing.T) {
	f := newFixture(t)
	f.app.In = strings.NewReader("vk-piped-key\n")

	if err := f.run("keys", "set"); err != nil {
		t.Fatalf("keys set error = %v", err)
	}

	f.out.Reset()
	if err := f.run("keys", "get"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.out.String(), "vk-p") {
		t.Errorf("output = %s", f.out.String())
	}
}

func TestBatchCmd(t *testing.T) {
	f := newFixture(t)
	f.topUp(t, 1000)

	tmpDir := t.TempDir()
	promptFile := filepath.Join(tmpDir, "prompts.txt")
	content := "# test prompts\na fox at dawn\na city timelapse\n"
	if err := os.WriteFile(promptFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(tmpDir, "videos")
	if err := f.run("batch", promptFile, "--output-dir", outDir); err != nil {
		t.Fatalf("batch error = %v", err)
	}

	out := f.out.String()
	if !strings.Contains(out, "Processing 2 prompts") {
		t.Errorf("output = %s", out)
	}
	if !strings.Contains(out, "Successful: 2/2") || !strings.Contains(out, "$8.00 (800 credits)") {
		t.Errorf("output = %s", out)
	}

	for _, name := range []string{"001-a-fox-at-dawn.mp4", "002-a-city-timelapse.mp4"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	store, err := session.NewStoreWithPath(f.dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	balance, err := store.Balance(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if balance != 200 {
		t.Errorf("balance = %d, want 200", balance)
	}
}

func TestBatchCmd_MissingFile(t *testing.T) {
	f := newFixture(t)
	if err := f.run("batch", filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("missing file should error")
	}
	if f.gen.called {
		t.Error("generator must not run without a prompt file")
	}
}

func TestReplCmd(t *testing.T) {
	f := newFixture(t)
	f.app.In = strings.NewReader("credits add 500\nquit\n")

	if err := f.run("repl"); err != nil {
		t.Fatalf("repl error = %v", err)
	}

	out := f.out.String()
	if !strings.Contains(out, "500 credits") || !strings.Contains(out, "Goodbye!") {
		t.Errorf("output = %s", out)
	}
}
