package timeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Expr is an ffmpeg position expression. In the job spec it may be written as
// a string ("(W-w)/2") or a plain number; both decode into the string form.
type Expr string

func (e *Expr) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = Expr(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("position must be a string or a number: %s", data)
	}
	*e = Expr(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

func (e *Expr) UnmarshalYAML(value *yaml.Node) error {
	*e = Expr(value.Value)
	return nil
}

// rawLayer is the loose wire form of a layer; the tagged union is built from
// it after the kind is known. Pointers distinguish "absent" from zero for
// fields whose default is not the zero value.
type rawLayer struct {
	Type         string   `json:"type" yaml:"type"`
	Source       string   `json:"source" yaml:"source"`
	Width        int      `json:"width" yaml:"width"`
	Height       int      `json:"height" yaml:"height"`
	X            Expr     `json:"x" yaml:"x"`
	Y            Expr     `json:"y" yaml:"y"`
	Opacity      *float64 `json:"opacity" yaml:"opacity"`
	ResizeMode   string   `json:"resize_mode" yaml:"resize_mode"`
	DurationMode string   `json:"duration_mode" yaml:"duration_mode"`
	Content      string   `json:"content" yaml:"content"`
	Size         int      `json:"size" yaml:"size"`
	Color        string   `json:"color" yaml:"color"`
	Volume       *float64 `json:"volume" yaml:"volume"`
	Role         string   `json:"role" yaml:"role"`
}

type rawScene struct {
	Duration float64    `json:"duration" yaml:"duration"`
	Layers   []rawLayer `json:"layers" yaml:"layers"`
}

type rawSettings struct {
	Width        int    `json:"width" yaml:"width"`
	Height       int    `json:"height" yaml:"height"`
	VideoCodec   string `json:"video_codec" yaml:"video_codec"`
	Preset       string `json:"preset" yaml:"preset"`
	Quality      int    `json:"quality" yaml:"quality"`
	AudioCodec   string `json:"audio_codec" yaml:"audio_codec"`
	AudioBitrate string `json:"audio_bitrate" yaml:"audio_bitrate"`
}

type rawBackground struct {
	Source string   `json:"source" yaml:"source"`
	Volume *float64 `json:"volume" yaml:"volume"`
}

type rawProject struct {
	Timeline        []rawScene     `json:"timeline" yaml:"timeline"`
	Settings        rawSettings    `json:"settings" yaml:"settings"`
	BackgroundTrack *rawBackground `json:"background_track" yaml:"background_track"`
}

// DefaultBackgroundVolume keeps an unspecified background track quiet.
const DefaultBackgroundVolume = 0.15

// Load reads a job specification from disk. The format is chosen by
// extension: .yaml/.yml decode as YAML, everything else as JSON.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return Decode(data, true)
	default:
		return Decode(data, false)
	}
}

// Decode parses a job specification and builds the typed project. Layers of
// unknown kind are rejected here, before any asset is touched.
func Decode(data []byte, isYAML bool) (*Project, error) {
	var raw rawProject
	if isYAML {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &ValidationError{Path: "spec", Reason: err.Error()}
		}
	} else {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, &ValidationError{Path: "spec", Reason: err.Error()}
		}
	}

	project := &Project{
		Settings: Settings(raw.Settings),
	}
	project.Settings.ApplyDefaults()

	for si, rs := range raw.Timeline {
		scene := Scene{Duration: rs.Duration}
		for li, rl := range rs.Layers {
			layer, err := buildLayer(rl, si, li)
			if err != nil {
				return nil, err
			}
			scene.Layers = append(scene.Layers, layer)
		}
		project.Timeline = append(project.Timeline, scene)
	}

	if raw.BackgroundTrack != nil {
		bg := &BackgroundTrack{
			Source: raw.BackgroundTrack.Source,
			Volume: DefaultBackgroundVolume,
		}
		if raw.BackgroundTrack.Volume != nil {
			bg.Volume = *raw.BackgroundTrack.Volume
		}
		project.BackgroundTrack = bg
	}

	return project, nil
}

func buildLayer(rl rawLayer, scene, index int) (Layer, error) {
	placement := VisualPlacement{
		Source:       rl.Source,
		Width:        rl.Width,
		Height:       rl.Height,
		X:            string(rl.X),
		Y:            string(rl.Y),
		Opacity:      1.0,
		ResizeMode:   rl.ResizeMode,
		DurationMode: rl.DurationMode,
	}
	if rl.Opacity != nil {
		placement.Opacity = *rl.Opacity
	}
	if placement.ResizeMode == "" {
		placement.ResizeMode = ResizeCover
	}
	if placement.DurationMode == "" {
		placement.DurationMode = DurationTrim
	}

	switch Kind(rl.Type) {
	case KindVideo:
		return VideoLayer{placement}, nil
	case KindImage:
		return ImageLayer{placement}, nil
	case KindText:
		return TextLayer{
			Content: rl.Content,
			Size:    rl.Size,
			Color:   rl.Color,
			X:       string(rl.X),
			Y:       string(rl.Y),
		}, nil
	case KindAudio:
		a := AudioLayer{Source: rl.Source, Volume: 1.0, Role: rl.Role}
		if rl.Volume != nil {
			a.Volume = *rl.Volume
		}
		return a, nil
	default:
		return nil, &ValidationError{
			Path:   layerPath(scene, index),
			Reason: fmt.Sprintf("unknown layer type %q", rl.Type),
		}
	}
}

func layerPath(scene, index int) string {
	return fmt.Sprintf("timeline[%d].layers[%d]", scene, index)
}
