package render

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/ivlev/timeline2video/internal/filtergraph"
	"github.com/ivlev/timeline2video/internal/probe"
	"github.com/ivlev/timeline2video/internal/timeline"
)

// DefaultSceneDuration is used when a scene has no explicit duration, no
// audio layer, or its main audio could not be probed.
const DefaultSceneDuration = 5.0

// EngineError carries the compositing engine's diagnostic output. Fatal:
// scene failures abort the whole run with no partial chunk retained.
type EngineError struct {
	Scene  int
	Output string
	Err    error
}

func (e *EngineError) Error() string {
	stage := fmt.Sprintf("scene %d", e.Scene)
	if e.Scene < 0 {
		stage = "final stitch"
	}
	return fmt.Sprintf("ffmpeg failed on %s: %v\n%s", stage, e.Err, e.Output)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Renderer binds compiled graphs to concrete inputs and encode settings and
// drives ffmpeg once per scene.
type Renderer struct {
	FFmpeg   string // бинарник движка, по умолчанию "ffmpeg"
	Encoder  string // имя видеокодека (libx264 / h264_nvenc / h264_videotoolbox)
	Settings timeline.Settings
	Assets   map[string]string // источник → локальный путь
	Log      *log.Logger
}

func (r *Renderer) ffmpeg() string {
	if r.FFmpeg != "" {
		return r.FFmpeg
	}
	return "ffmpeg"
}

// encoder resolves the video codec: an explicit Encoder (flag or autodetect
// result) wins, then the spec's video_codec, then plain libx264.
func (r *Renderer) encoder() string {
	if r.Encoder != "" {
		return r.Encoder
	}
	if r.Settings.VideoCodec != "" {
		return r.Settings.VideoCodec
	}
	return "libx264"
}

func (r *Renderer) logf(format string, args ...any) {
	if r.Log != nil {
		r.Log.Printf(format, args...)
	}
}

// RenderScene renders one scene into outPath. Index 0 is the synthetic
// canvas; distinct resolved paths get indices 1..N in first-reference order.
func (r *Renderer) RenderScene(ctx context.Context, scene *timeline.Scene, index int, outPath string) error {
	duration := r.SceneDuration(ctx, scene, index)

	inputs, indexOf := assignInputs(scene.Layers, r.Assets)
	graph, err := filtergraph.Compile(scene.Layers, indexOf, duration, r.Settings.Width, r.Settings.Height)
	if err != nil {
		return fmt.Errorf("scene %d: %w", index, err)
	}

	args := []string{"-y"}
	// Вход 0 — виртуальный холст, подается как lavfi-источник.
	args = append(args, "-f", "lavfi", "-i",
		fmt.Sprintf("color=c=black:s=%dx%d:d=%g", r.Settings.Width, r.Settings.Height, duration))
	for _, path := range inputs {
		args = append(args, "-i", path)
	}
	args = append(args, "-filter_complex", graph.String())
	args = append(args, "-map", "["+graph.VideoOut+"]", "-map", "["+graph.AudioOut+"]")
	args = append(args, "-c:v", r.encoder())
	args = append(args, qualityArgs(r.encoder(), r.Settings.Quality, r.Settings.Preset)...)
	args = append(args, "-pix_fmt", "yuv420p")
	args = append(args, "-c:a", r.Settings.AudioCodec, "-b:a", r.Settings.AudioBitrate)
	args = append(args, outPath)

	r.logf("[>] Сцена %d: рендеринг (%.2fs, %d входов)...", index, duration, len(inputs))
	cmd := exec.CommandContext(ctx, r.ffmpeg(), args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(outPath)
		return &EngineError{Scene: index, Output: strings.TrimSpace(string(out)), Err: err}
	}
	return nil
}

// SceneDuration resolves the authoritative scene duration: the explicit value
// wins; otherwise the main audio layer is probed. Probe failures are
// recoverable and fall back to the default with a warning.
func (r *Renderer) SceneDuration(ctx context.Context, scene *timeline.Scene, index int) float64 {
	if scene.Duration > 0 {
		return scene.Duration
	}
	main := scene.MainAudio()
	if main == nil {
		return DefaultSceneDuration
	}
	path, ok := r.Assets[main.Source]
	if !ok {
		r.logf("[!] Сцена %d: аудио %q не разрешено, длительность по умолчанию", index, main.Source)
		return DefaultSceneDuration
	}
	seconds, err := probe.Duration(ctx, path)
	if err != nil {
		r.logf("[!] Сцена %d: не удалось измерить %q (%v), длительность %.1fs", index, main.Source, err, DefaultSceneDuration)
		return DefaultSceneDuration
	}
	r.logf("[*] Сцена %d: длительность по аудио %.2fs", index, seconds)
	return seconds
}

// assignInputs walks the layers in order and gives every distinct resolved
// path one ffmpeg input index starting at 1. Two layers sharing a path share
// an index, so the file is decoded once.
func assignInputs(layers []timeline.Layer, assets map[string]string) ([]string, filtergraph.InputIndex) {
	var inputs []string
	byPath := make(map[string]int)
	for _, layer := range layers {
		src := timeline.LayerSource(layer)
		if src == "" {
			continue
		}
		path := assets[src]
		if _, ok := byPath[path]; !ok {
			inputs = append(inputs, path)
			byPath[path] = len(inputs) // canvas занимает индекс 0
		}
	}
	return inputs, func(source string) int {
		return byPath[assets[source]]
	}
}

// qualityArgs maps the abstract quality setting onto encoder-specific flags.
// VideoToolbox ignores CRF-style options, so quality becomes a bitrate.
func qualityArgs(encoder string, quality int, preset string) []string {
	switch encoder {
	case "h264_videotoolbox":
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", preset}
	}
}
