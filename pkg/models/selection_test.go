package models

import "testing"

func TestDefaultSelection(t *testing.T) {
	caps := testCaps()
	sel := DefaultSelection(caps)

	if got := sel.AspectRatio(caps); got != "16:9" {
		t.Errorf("AspectRatio = %s, want 16:9", got)
	}
	if got := sel.Resolution(caps); got != "720p" {
		t.Errorf("Resolution = %s, want 720p", got)
	}
	if got := sel.Seconds(caps); got != 8 {
		t.Errorf("Seconds = %d, want 8", got)
	}
	if !sel.Audio {
		t.Error("Audio should default on for an audio-capable model")
	}
	if sel.Mode != ModeTextToVideo {
		t.Errorf("Mode = %s, want text-to-video", sel.Mode)
	}
}

func TestSelection_Clamp_AfterModelSwitch(t *testing.T) {
	wide := motionCaps() // 3 aspects, 2 resolutions, 2 durations
	sel := Selection{AspectIndex: 2, ResolutionIndex: 1, DurationIndex: 1, TierIndex: 1, Audio: false, Mode: ModeTextToVideo}
	sel.Clamp(wide)
	if sel.AspectIndex != 2 {
		t.Errorf("in-range aspect index should be untouched, got %d", sel.AspectIndex)
	}

	narrow := testCaps() // 2 aspects, no tiers
	sel.Clamp(narrow)
	if sel.AspectIndex != 0 {
		t.Errorf("out-of-range aspect index should reset to 0, got %d", sel.AspectIndex)
	}
	if sel.ResolutionIndex != 1 || sel.DurationIndex != 1 {
		t.Errorf("in-range indices should survive, got res=%d dur=%d", sel.ResolutionIndex, sel.DurationIndex)
	}
	if sel.TierIndex != 0 {
		t.Errorf("tier index should reset when model has no tiers, got %d", sel.TierIndex)
	}
}

func TestSelection_Clamp_DropsUnsupported(t *testing.T) {
	caps := motionCaps()
	sel := Selection{Audio: true, Mode: ModeFrameImages}
	sel.Clamp(caps)

	if sel.Audio {
		t.Error("audio should be dropped for models without audio")
	}
	if sel.Mode != ModeTextToVideo {
		t.Errorf("unsupported mode should fall back to first supported, got %s", sel.Mode)
	}
}

func TestSelection_Clamp_NegativeIndices(t *testing.T) {
	caps := testCaps()
	sel := Selection{AspectIndex: -1, ResolutionIndex: -2, DurationIndex: -3}
	sel.Clamp(caps)
	if sel.AspectIndex != 0 || sel.ResolutionIndex != 0 || sel.DurationIndex != 0 {
		t.Errorf("negative indices should reset to 0, got %+v", sel)
	}
}

func TestSelection_Tier_SingleTierModel(t *testing.T) {
	caps := motionCaps()
	caps.MotionTiers = []string{"standard"}

	for _, idx := range []int{0, 1, 5, -1} {
		sel := Selection{TierIndex: idx}
		if got := sel.Tier(caps); got != "standard" {
			t.Errorf("TierIndex=%d: Tier() = %s, want standard", idx, got)
		}
	}
}

func TestSelection_Tier_MultiTierModel(t *testing.T) {
	caps := motionCaps()

	sel := Selection{TierIndex: 1}
	if got := sel.Tier(caps); got != "pro" {
		t.Errorf("Tier() = %s, want pro", got)
	}

	sel = Selection{TierIndex: 7}
	if got := sel.Tier(caps); got != "standard" {
		t.Errorf("out-of-range tier should fall back to first, got %s", got)
	}
}

func TestSelection_InRange(t *testing.T) {
	caps := testCaps()

	sel := DefaultSelection(caps)
	if !sel.InRange(caps) {
		t.Error("default selection should be in range")
	}

	sel.AspectIndex = 9
	if sel.InRange(caps) {
		t.Error("selection with out-of-range aspect should not be in range")
	}
}

func TestSelection_Request(t *testing.T) {
	caps := motionCaps()
	sel := Selection{AspectIndex: 1, ResolutionIndex: 1, DurationIndex: 1, Mode: ModeTextToVideo}

	req := sel.Request(caps, "city timelapse")
	if req.Model != "kling-2.1" {
		t.Errorf("Model = %s, want kling-2.1", req.Model)
	}
	if req.AspectRatio != "9:16" || req.Resolution != "1080p" || req.Seconds != 10 {
		t.Errorf("unexpected request fields: %+v", req)
	}
	if req.Audio {
		t.Error("audio should be off for a model without audio support")
	}
	if err := caps.Validate(req); err != nil {
		t.Errorf("materialized request should validate, got %v", err)
	}
}
