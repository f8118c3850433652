package timeline

// Project is the root of a job specification: an ordered timeline of scenes,
// optional canvas/encode settings and an optional looped background track.
type Project struct {
	Timeline        []Scene
	Settings        Settings
	BackgroundTrack *BackgroundTrack
}

// Scene is one timeline unit. Duration == 0 means "derive from the main audio
// layer, or fall back to the default".
type Scene struct {
	Duration float64
	Layers   []Layer
}

// Settings описывает холст и параметры кодирования. Нулевые поля
// заполняются через ApplyDefaults.
type Settings struct {
	Width        int
	Height       int
	VideoCodec   string
	Preset       string
	Quality      int
	AudioCodec   string
	AudioBitrate string
}

// BackgroundTrack is looped for the whole final video and mixed in quietly.
type BackgroundTrack struct {
	Source string
	Volume float64
}

// Kind identifies a layer variant.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
	KindText  Kind = "text"
	KindAudio Kind = "audio"
)

// Layer is a tagged union: exactly one concrete type per kind. Unknown kinds
// are rejected while decoding, not at composition time.
type Layer interface {
	Kind() Kind
	validate(scene, index int) error
}

// VisualPlacement holds the fields shared by video and image layers.
// X/Y are ffmpeg position expressions and pass through uninterpreted;
// empty means centered. Width/Height == 0 means canvas size.
type VisualPlacement struct {
	Source       string
	Width        int
	Height       int
	X            string
	Y            string
	Opacity      float64
	ResizeMode   string
	DurationMode string
}

type VideoLayer struct {
	VisualPlacement
}

func (VideoLayer) Kind() Kind { return KindVideo }

type ImageLayer struct {
	VisualPlacement
}

func (ImageLayer) Kind() Kind { return KindImage }

type TextLayer struct {
	Content string
	Size    int
	Color   string
	X       string
	Y       string
}

func (TextLayer) Kind() Kind { return KindText }

// AudioLayer participates in the scene mix. Role == "main" marks the track
// whose measured length becomes the scene duration when no explicit duration
// is set. Если таких слоев несколько, побеждает первый по порядку — так
// делал оригинальный движок, поведение сохранено намеренно.
type AudioLayer struct {
	Source string
	Volume float64
	Role   string
}

func (AudioLayer) Kind() Kind { return KindAudio }

// RoleMain is the duration-determining audio role.
const RoleMain = "main"

const (
	ResizeCover   = "cover"
	ResizeContain = "contain"
	ResizeStretch = "stretch"

	DurationTrim   = "trim"
	DurationLoop   = "loop"
	DurationFreeze = "freeze"
)

// ApplyDefaults fills zero-valued settings with the engine defaults
// (vertical 1080x1920 canvas, ultrafast preset, aac audio). VideoCodec is
// left empty on purpose: an absent codec means "let the engine pick", which
// happens at render time and may choose a hardware encoder.
func (s *Settings) ApplyDefaults() {
	if s.Width == 0 {
		s.Width = 1080
	}
	if s.Height == 0 {
		s.Height = 1920
	}
	if s.Preset == "" {
		s.Preset = "ultrafast"
	}
	if s.Quality == 0 {
		s.Quality = 23
	}
	if s.AudioCodec == "" {
		s.AudioCodec = "aac"
	}
	if s.AudioBitrate == "" {
		s.AudioBitrate = "192k"
	}
}

// LayerSource returns the media source of a layer, or "" for layers without
// one (text).
func LayerSource(l Layer) string {
	switch v := l.(type) {
	case VideoLayer:
		return v.Source
	case ImageLayer:
		return v.Source
	case AudioLayer:
		return v.Source
	}
	return ""
}

// Sources collects every distinct source string referenced by the project —
// all layers of all scenes plus the background track — in first-seen order.
// One global pass keeps an asset reused across scenes fetched exactly once.
func (p *Project) Sources() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(src string) {
		if src == "" || seen[src] {
			return
		}
		seen[src] = true
		out = append(out, src)
	}
	for _, scene := range p.Timeline {
		for _, layer := range scene.Layers {
			add(LayerSource(layer))
		}
	}
	if p.BackgroundTrack != nil {
		add(p.BackgroundTrack.Source)
	}
	return out
}

// MainAudio returns the duration-determining audio layer of a scene: the
// first layer with role "main", else the first audio layer of any role,
// else nil.
func (s *Scene) MainAudio() *AudioLayer {
	var first *AudioLayer
	for _, layer := range s.Layers {
		a, ok := layer.(AudioLayer)
		if !ok {
			continue
		}
		if a.Role == RoleMain {
			return &a
		}
		if first == nil {
			first = &a
		}
	}
	return first
}
