package timeline

import "fmt"

// ValidationError marks a malformed or incomplete job specification. It is
// always fatal and is raised before any asset work begins.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid spec at %s: %s", e.Path, e.Reason)
}

// Validate checks the structural contract: a non-empty timeline, at least one
// layer per scene and per-kind field constraints.
func (p *Project) Validate() error {
	if len(p.Timeline) == 0 {
		return &ValidationError{Path: "timeline", Reason: "must contain at least one scene"}
	}
	for si, scene := range p.Timeline {
		if scene.Duration < 0 {
			return &ValidationError{
				Path:   fmt.Sprintf("timeline[%d].duration", si),
				Reason: "must not be negative (omit it to derive from the main audio)",
			}
		}
		if len(scene.Layers) == 0 {
			return &ValidationError{
				Path:   fmt.Sprintf("timeline[%d].layers", si),
				Reason: "scene must declare at least one layer",
			}
		}
		for li, layer := range scene.Layers {
			if err := layer.validate(si, li); err != nil {
				return err
			}
		}
	}
	if bg := p.BackgroundTrack; bg != nil {
		if bg.Source == "" {
			return &ValidationError{Path: "background_track.source", Reason: "is required"}
		}
		if bg.Volume < 0 {
			return &ValidationError{Path: "background_track.volume", Reason: "must not be negative"}
		}
	}
	return nil
}

func (v VisualPlacement) validate(scene, index int) error {
	if v.Source == "" {
		return &ValidationError{Path: layerPath(scene, index) + ".source", Reason: "is required"}
	}
	if v.Opacity < 0 || v.Opacity > 1 {
		return &ValidationError{
			Path:   layerPath(scene, index) + ".opacity",
			Reason: fmt.Sprintf("%g is outside [0, 1]", v.Opacity),
		}
	}
	switch v.ResizeMode {
	case ResizeCover, ResizeContain, ResizeStretch:
	default:
		return &ValidationError{
			Path:   layerPath(scene, index) + ".resize_mode",
			Reason: fmt.Sprintf("unknown mode %q", v.ResizeMode),
		}
	}
	switch v.DurationMode {
	case DurationTrim, DurationLoop, DurationFreeze:
	default:
		return &ValidationError{
			Path:   layerPath(scene, index) + ".duration_mode",
			Reason: fmt.Sprintf("unknown mode %q", v.DurationMode),
		}
	}
	return nil
}

func (t TextLayer) validate(scene, index int) error {
	if t.Content == "" {
		return &ValidationError{Path: layerPath(scene, index) + ".content", Reason: "is required"}
	}
	if t.Size < 0 {
		return &ValidationError{Path: layerPath(scene, index) + ".size", Reason: "must be positive"}
	}
	return nil
}

func (a AudioLayer) validate(scene, index int) error {
	if a.Source == "" {
		return &ValidationError{Path: layerPath(scene, index) + ".source", Reason: "is required"}
	}
	if a.Volume < 0 {
		return &ValidationError{Path: layerPath(scene, index) + ".volume", Reason: "must not be negative"}
	}
	return nil
}
