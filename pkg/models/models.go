package models

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

var (
	ErrEmptyPrompt           = errors.New("prompt cannot be empty")
	ErrInvalidAspectRatio    = errors.New("invalid aspect ratio for model")
	ErrInvalidResolution     = errors.New("invalid resolution for model")
	ErrInvalidDuration       = errors.New("invalid duration for model")
	ErrModeNotSupported      = errors.New("generation mode not supported by model")
	ErrAudioNotSupported     = errors.New("audio not supported by model")
	ErrUnknownTier           = errors.New("unknown motion control tier")
	ErrMissingReferenceImage = errors.New("reference image is required for image-to-video")
	ErrMissingFrameImages    = errors.New("first and last frame images are required for frame-images")
	ErrMissingReferenceVideo = errors.New("reference video is required for motion control")
	ErrReferenceVideoTooLong = errors.New("reference video exceeds maximum duration")
	ErrModelNotFound         = errors.New("model not found in catalog")
)

type ProviderType string

const (
	ProviderKling    ProviderType = "kling"
	ProviderVeo      ProviderType = "veo"
	ProviderHailuo   ProviderType = "hailuo"
	ProviderWan      ProviderType = "wan"
	ProviderSeedance ProviderType = "seedance"
)

type GenerationMode string

const (
	ModeTextToVideo   GenerationMode = "text-to-video"
	ModeImageToVideo  GenerationMode = "image-to-video"
	ModeFrameImages   GenerationMode = "frame-images"
	ModeMotionControl GenerationMode = "motion-control"
)

func ValidModes() []GenerationMode {
	return []GenerationMode{ModeTextToVideo, ModeImageToVideo, ModeFrameImages, ModeMotionControl}
}

func (m GenerationMode) IsValid() bool {
	return slices.Contains(ValidModes(), m)
}

func (m GenerationMode) String() string {
	return string(m)
}

type VideoRequest struct {
	Prompt           string
	Model            string
	AspectRatio      string
	Resolution       string
	Seconds          int
	Audio            bool
	Mode             GenerationMode
	Tier             string
	ReferenceImage   []byte
	FirstFrame       []byte
	LastFrame        []byte
	ReferenceVideo   []byte
	ReferenceSeconds int
}

func NewVideoRequest(prompt string) *VideoRequest {
	return &VideoRequest{
		Prompt: prompt,
		Mode:   ModeTextToVideo,
		Audio:  true,
	}
}

type Response struct {
	Videos []GeneratedVideo
	JobID  string
}

type GeneratedVideo struct {
	Data     []byte
	Filename string
	Seconds  int
}

// ModelCapabilities describes the option lists and feature set of a single
// video model. Option lists are the source of truth for what a selection may
// reference; the pricing tables must use the exact same labels.
type ModelCapabilities struct {
	Name                string
	DisplayName         string
	Provider            ProviderType
	AspectRatios        []string
	Resolutions         []string
	Durations           []int
	Modes               []GenerationMode
	SupportsAudio       bool
	MotionTiers         []string
	BaseCost            float64
	DefaultAspectRatio  string
	DefaultResolution   string
	DefaultSeconds      int
	MaxReferenceSeconds int
}

func (c *ModelCapabilities) SupportsMode(m GenerationMode) bool {
	return slices.Contains(c.Modes, m)
}

func (c *ModelCapabilities) Validate(req *VideoRequest) error {
	if req.Prompt == "" && req.Mode != ModeMotionControl {
		return ErrEmptyPrompt
	}

	if req.Mode != "" && !c.SupportsMode(req.Mode) {
		return fmt.Errorf("%w: %q not in %v", ErrModeNotSupported, req.Mode, c.Modes)
	}

	if req.Mode == ModeMotionControl {
		return c.validateMotionControl(req)
	}

	if req.AspectRatio != "" && !slices.Contains(c.AspectRatios, req.AspectRatio) {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidAspectRatio, req.AspectRatio, c.AspectRatios)
	}

	if req.Resolution != "" && !slices.Contains(c.Resolutions, req.Resolution) {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidResolution, req.Resolution, c.Resolutions)
	}

	if req.Seconds != 0 && !slices.Contains(c.Durations, req.Seconds) {
		return fmt.Errorf("%w: %ds not in %v", ErrInvalidDuration, req.Seconds, c.Durations)
	}

	if req.Audio && !c.SupportsAudio {
		return ErrAudioNotSupported
	}

	if req.Mode == ModeImageToVideo && len(req.ReferenceImage) == 0 {
		return ErrMissingReferenceImage
	}

	if req.Mode == ModeFrameImages && (len(req.FirstFrame) == 0 || len(req.LastFrame) == 0) {
		return ErrMissingFrameImages
	}

	return nil
}

func (c *ModelCapabilities) validateMotionControl(req *VideoRequest) error {
	if len(req.ReferenceVideo) == 0 {
		return ErrMissingReferenceVideo
	}
	if c.MaxReferenceSeconds > 0 && req.ReferenceSeconds > c.MaxReferenceSeconds {
		return fmt.Errorf("%w: %ds, max %ds", ErrReferenceVideoTooLong, req.ReferenceSeconds, c.MaxReferenceSeconds)
	}
	if req.Tier != "" && !slices.Contains(c.MotionTiers, req.Tier) {
		return fmt.Errorf("%w: %q not in %v", ErrUnknownTier, req.Tier, c.MotionTiers)
	}
	return nil
}

func (c *ModelCapabilities) ApplyDefaults(req *VideoRequest) {
	if req.Model == "" {
		req.Model = c.Name
	}
	if req.AspectRatio == "" {
		req.AspectRatio = c.DefaultAspectRatio
	}
	if req.Resolution == "" {
		req.Resolution = c.DefaultResolution
	}
	if req.Seconds == 0 {
		req.Seconds = c.DefaultSeconds
	}
	if req.Mode == "" {
		req.Mode = ModeTextToVideo
	}
	if req.Audio && !c.SupportsAudio {
		req.Audio = false
	}
	if req.Mode == ModeMotionControl && req.Tier == "" && len(c.MotionTiers) > 0 {
		req.Tier = c.MotionTiers[0]
	}
}

type Catalog struct {
	models map[string]*ModelCapabilities
}

func NewCatalog() *Catalog {
	return &Catalog{
		models: make(map[string]*ModelCapabilities),
	}
}

func (c *Catalog) Register(cap *ModelCapabilities) {
	c.models[cap.Name] = cap
}

func (c *Catalog) Get(name string) (*ModelCapabilities, bool) {
	cap, ok := c.models[name]
	return cap, ok
}

func (c *Catalog) Len() int {
	return len(c.models)
}

func (c *Catalog) List() []string {
	names := make([]string, 0, len(c.models))
	for name := range c.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) ListByProvider(provider ProviderType) []string {
	var names []string
	for name, cap := range c.models {
		if cap.Provider == provider {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
