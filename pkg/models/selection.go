package models

// Selection is the caller-owned configuration state for a pending generation:
// indices into a model's option lists plus the toggles that do not come from
// a list. Indices are clamped rather than validated so that switching to a
// model with shorter option lists can never leave the selection out of range.
type Selection struct {
	AspectIndex      int
	ResolutionIndex  int
	DurationIndex    int
	Audio            bool
	Mode             GenerationMode
	TierIndex        int
	ReferenceSeconds int
}

// DefaultSelection builds a selection pointing at the model's default
// aspect/resolution/duration, with audio on when the model supports it.
func DefaultSelection(caps *ModelCapabilities) Selection {
	sel := Selection{
		Mode:  ModeTextToVideo,
		Audio: caps.SupportsAudio,
	}
	for i, a := range caps.AspectRatios {
		if a == caps.DefaultAspectRatio {
			sel.AspectIndex = i
		}
	}
	for i, r := range caps.Resolutions {
		if r == caps.DefaultResolution {
			sel.ResolutionIndex = i
		}
	}
	for i, d := range caps.Durations {
		if d == caps.DefaultSeconds {
			sel.DurationIndex = i
		}
	}
	if !caps.SupportsMode(ModeTextToVideo) && len(caps.Modes) > 0 {
		sel.Mode = caps.Modes[0]
	}
	return sel
}

// Clamp resets any index that no longer references a valid option to 0 and
// drops toggles the model does not support. Call after every model switch.
func (s *Selection) Clamp(caps *ModelCapabilities) {
	if s.AspectIndex < 0 || s.AspectIndex >= len(caps.AspectRatios) {
		s.AspectIndex = 0
	}
	if s.ResolutionIndex < 0 || s.ResolutionIndex >= len(caps.Resolutions) {
		s.ResolutionIndex = 0
	}
	if s.DurationIndex < 0 || s.DurationIndex >= len(caps.Durations) {
		s.DurationIndex = 0
	}
	if s.TierIndex < 0 || s.TierIndex >= len(caps.MotionTiers) {
		s.TierIndex = 0
	}
	if s.Audio && !caps.SupportsAudio {
		s.Audio = false
	}
	if !caps.SupportsMode(s.Mode) {
		if len(caps.Modes) > 0 {
			s.Mode = caps.Modes[0]
		} else {
			s.Mode = ModeTextToVideo
		}
	}
}

// AspectRatio resolves the selected aspect ratio label, or "" when the model
// offers none.
func (s Selection) AspectRatio(caps *ModelCapabilities) string {
	if s.AspectIndex < 0 || s.AspectIndex >= len(caps.AspectRatios) {
		return ""
	}
	return caps.AspectRatios[s.AspectIndex]
}

func (s Selection) Resolution(caps *ModelCapabilities) string {
	if s.ResolutionIndex < 0 || s.ResolutionIndex >= len(caps.Resolutions) {
		return ""
	}
	return caps.Resolutions[s.ResolutionIndex]
}

func (s Selection) Seconds(caps *ModelCapabilities) int {
	if s.DurationIndex < 0 || s.DurationIndex >= len(caps.Durations) {
		return 0
	}
	return caps.Durations[s.DurationIndex]
}

// Tier resolves the selected motion control tier. Models that define a single
// tier always resolve to that tier, regardless of the stored index.
func (s Selection) Tier(caps *ModelCapabilities) string {
	if len(caps.MotionTiers) == 0 {
		return ""
	}
	if len(caps.MotionTiers) == 1 {
		return caps.MotionTiers[0]
	}
	if s.TierIndex < 0 || s.TierIndex >= len(caps.MotionTiers) {
		return caps.MotionTiers[0]
	}
	return caps.MotionTiers[s.TierIndex]
}

// InRange reports whether every list-backed index references a valid option.
func (s Selection) InRange(caps *ModelCapabilities) bool {
	if s.Mode == ModeMotionControl {
		return len(caps.MotionTiers) == 0 || (s.TierIndex >= 0 && s.TierIndex < len(caps.MotionTiers)) || len(caps.MotionTiers) == 1
	}
	return s.AspectIndex >= 0 && s.AspectIndex < len(caps.AspectRatios) &&
		s.ResolutionIndex >= 0 && s.ResolutionIndex < len(caps.Resolutions) &&
		s.DurationIndex >= 0 && s.DurationIndex < len(caps.Durations)
}

// Request materializes the selection into a VideoRequest for dispatch.
// Reference media is attached by the caller afterwards.
func (s Selection) Request(caps *ModelCapabilities, prompt string) *VideoRequest {
	return &VideoRequest{
		Prompt:           prompt,
		Model:            caps.Name,
		AspectRatio:      s.AspectRatio(caps),
		Resolution:       s.Resolution(caps),
		Seconds:          s.Seconds(caps),
		Audio:            s.Audio && caps.SupportsAudio,
		Mode:             s.Mode,
		Tier:             s.Tier(caps),
		ReferenceSeconds: s.ReferenceSeconds,
	}
}
