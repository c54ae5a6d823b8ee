// Package catalog loads the bundled model catalog. The catalog is compiled
// into the binary, loaded once at startup, and immutable afterwards.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/manash/vidgen/pkg/models"
)

//go:embed models.json
var catalogJSON []byte

type modelEntry struct {
	ID                  string   `json:"id"`
	DisplayName         string   `json:"display_name"`
	Provider            string   `json:"provider"`
	AspectRatios        []string `json:"aspect_ratios"`
	Resolutions         []string `json:"resolutions"`
	Durations           []int    `json:"durations"`
	Modes               []string `json:"modes"`
	SupportsAudio       bool     `json:"supports_audio"`
	MotionTiers         []string `json:"motion_tiers,omitempty"`
	MaxReferenceSeconds int      `json:"max_reference_seconds,omitempty"`
	BaseCost            float64  `json:"base_cost"`
	DefaultAspectRatio  string   `json:"default_aspect_ratio"`
	DefaultResolution   string   `json:"default_resolution"`
	DefaultSeconds      int      `json:"default_seconds"`
}

type catalogFile struct {
	Models []modelEntry `json:"models"`
}

// Load parses the embedded catalog into a models.Catalog.
func Load() (*models.Catalog, error) {
	return parse(catalogJSON)
}

func parse(data []byte) (*models.Catalog, error) {
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse model catalog: %w", err)
	}
	if len(file.Models) == 0 {
		return nil, fmt.Errorf("model catalog is empty")
	}

	cat := models.NewCatalog()
	for _, entry := range file.Models {
		caps, err := entry.capabilities()
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", entry.ID, err)
		}
		cat.Register(caps)
	}
	return cat, nil
}

func (e modelEntry) capabilities() (*models.ModelCapabilities, error) {
	if e.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	if len(e.AspectRatios) == 0 || len(e.Resolutions) == 0 || len(e.Durations) == 0 {
		return nil, fmt.Errorf("empty option list")
	}
	if e.BaseCost < 0 {
		return nil, fmt.Errorf("negative base cost %v", e.BaseCost)
	}

	modes := make([]models.GenerationMode, 0, len(e.Modes))
	for _, m := range e.Modes {
		mode := models.GenerationMode(m)
		if !mode.IsValid() {
			return nil, fmt.Errorf("unknown mode %q", m)
		}
		modes = append(modes, mode)
	}

	if slices.Contains(modes, models.ModeMotionControl) && len(e.MotionTiers) == 0 {
		return nil, fmt.Errorf("motion-control mode requires at least one tier")
	}

	if !slices.Contains(e.AspectRatios, e.DefaultAspectRatio) {
		return nil, fmt.Errorf("default aspect ratio %q not in option list", e.DefaultAspectRatio)
	}
	if !slices.Contains(e.Resolutions, e.DefaultResolution) {
		return nil, fmt.Errorf("default resolution %q not in option list", e.DefaultResolution)
	}
	if !slices.Contains(e.Durations, e.DefaultSeconds) {
		return nil, fmt.Errorf("default duration %ds not in option list", e.DefaultSeconds)
	}

	return &models.ModelCapabilities{
		Name:                e.ID,
		DisplayName:         e.DisplayName,
		Provider:            models.ProviderType(e.Provider),
		AspectRatios:        e.AspectRatios,
		Resolutions:         e.Resolutions,
		Durations:           e.Durations,
		Modes:               modes,
		SupportsAudio:       e.SupportsAudio,
		MotionTiers:         e.MotionTiers,
		MaxReferenceSeconds: e.MaxReferenceSeconds,
		BaseCost:            e.BaseCost,
		DefaultAspectRatio:  e.DefaultAspectRatio,
		DefaultResolution:   e.DefaultResolution,
		DefaultSeconds:      e.DefaultSeconds,
	}, nil
}
