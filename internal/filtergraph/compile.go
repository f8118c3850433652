package filtergraph

import (
	"fmt"
	"strings"

	"github.com/ivlev/timeline2video/internal/timeline"
)

// InputIndex maps a layer source string to its ffmpeg input index. Index 0 is
// reserved for the synthetic canvas; the renderer assigns the rest.
type InputIndex func(source string) int

// Defaults applied when a layer leaves the field empty. Position expressions
// use ffmpeg variables and are evaluated by the engine, not here.
const (
	defaultOverlayX = "(W-w)/2"
	defaultOverlayY = "(H-h)/2"
	defaultTextX    = "(w-text_w)/2"
	defaultTextY    = "(h-text_h)/2"
	defaultTextSize = 60
	defaultColor    = "white"
)

// Compile turns an ordered layer list into the scene graph. The canvas
// (input 0) opens the chain; each visual layer overlays the previous result,
// each audio layer joins the final mix in declaration order.
func Compile(layers []timeline.Layer, index InputIndex, duration float64, width, height int) (*Graph, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("scene has no layers")
	}

	g := &Graph{}
	g.add(Node{Inputs: []string{"0:v"}, Filters: []string{"null"}, Outputs: []string{"v0"}})
	current := "v0"

	var mixInputs []string
	for i, layer := range layers {
		switch l := layer.(type) {
		case timeline.VideoLayer:
			current = compileVisual(g, l.VisualPlacement, index(l.Source), i, current, duration, width, height)
		case timeline.ImageLayer:
			current = compileVisual(g, l.VisualPlacement, index(l.Source), i, current, duration, width, height)
		case timeline.TextLayer:
			current = compileText(g, l, i, current)
		case timeline.AudioLayer:
			mixInputs = append(mixInputs, compileAudio(g, l, index(l.Source), i, duration))
		default:
			return nil, fmt.Errorf("layer %d: unsupported kind %q", i, layer.Kind())
		}
	}
	g.VideoOut = current
	g.AudioOut = finalizeAudio(g, mixInputs, duration)
	return g, nil
}

// compileVisual builds the transform chain of a video/image layer and
// composites it onto the current frame. The overlay passes the base through
// when the layer ends early; the base stream's length stays authoritative.
func compileVisual(g *Graph, v timeline.VisualPlacement, input, i int, current string, duration float64, canvasW, canvasH int) string {
	w, h := v.Width, v.Height
	if w == 0 {
		w = canvasW
	}
	if h == 0 {
		h = canvasH
	}

	var chain []string
	if v.DurationMode == timeline.DurationLoop || v.DurationMode == timeline.DurationFreeze {
		chain = append(chain, "loop=loop=-1:size=32767:start=0")
	}
	chain = append(chain, "setpts=N/FRAME_RATE/TB")
	chain = append(chain, scaleChain(v.ResizeMode, w, h)...)
	chain = append(chain, fmt.Sprintf("trim=duration=%g", duration))
	if v.Opacity < 1.0 {
		chain = append(chain, fmt.Sprintf("colorchannelmixer=aa=%g", v.Opacity))
	}

	processed := fmt.Sprintf("vin%d", i)
	g.add(Node{
		Inputs:  []string{fmt.Sprintf("%d:v", input)},
		Filters: chain,
		Outputs: []string{processed},
	})

	x, y := v.X, v.Y
	if x == "" {
		x = defaultOverlayX
	}
	if y == "" {
		y = defaultOverlayY
	}
	next := fmt.Sprintf("v%d", i+1)
	g.add(Node{
		Inputs:  []string{current, processed},
		Filters: []string{fmt.Sprintf("overlay=x=%s:y=%s:eof_action=pass:shortest=1", x, y)},
		Outputs: []string{next},
	})
	return next
}

func scaleChain(mode string, w, h int) []string {
	switch mode {
	case timeline.ResizeContain:
		return []string{
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h),
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", w, h),
		}
	case timeline.ResizeStretch:
		return []string{fmt.Sprintf("scale=%d:%d", w, h)}
	default: // cover
		return []string{
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", w, h),
			fmt.Sprintf("crop=%d:%d", w, h),
		}
	}
}

func compileText(g *Graph, t timeline.TextLayer, i int, current string) string {
	size := t.Size
	if size == 0 {
		size = defaultTextSize
	}
	color := t.Color
	if color == "" {
		color = defaultColor
	}
	x, y := t.X, t.Y
	if x == "" {
		x = defaultTextX
	}
	if y == "" {
		y = defaultTextY
	}

	next := fmt.Sprintf("v%d", i+1)
	g.add(Node{
		Inputs: []string{current},
		Filters: []string{fmt.Sprintf(
			"drawtext=text='%s':fontsize=%d:fontcolor=%s:borderw=2:bordercolor=black:x=%s:y=%s",
			SanitizeText(t.Content), size, color, x, y,
		)},
		Outputs: []string{next},
	})
	return next
}

// compileAudio normalizes one audio layer to exactly the scene duration:
// padded so a short clip never under-runs the mix, trimmed, timestamps reset,
// then volume-scaled.
func compileAudio(g *Graph, a timeline.AudioLayer, input, i int, duration float64) string {
	label := fmt.Sprintf("a%d", i)
	g.add(Node{
		Inputs: []string{fmt.Sprintf("%d:a", input)},
		Filters: []string{
			fmt.Sprintf("apad=whole_dur=%g", duration),
			fmt.Sprintf("atrim=duration=%g", duration),
			"asetpts=N/SR/TB",
			fmt.Sprintf("volume=%g", a.Volume),
		},
		Outputs: []string{label},
	})
	return label
}

// finalizeAudio mixes the collected streams (first input's length is
// authoritative, all inputs already normalized) or synthesizes silence when
// the scene has no audio at all.
func finalizeAudio(g *Graph, mixInputs []string, duration float64) string {
	const out = "aout"
	if len(mixInputs) == 0 {
		g.add(Node{
			Filters: []string{fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=44100:d=%g", duration)},
			Outputs: []string{out},
		})
		return out
	}
	g.add(Node{
		Inputs:  mixInputs,
		Filters: []string{fmt.Sprintf("amix=inputs=%d:duration=first:dropout_transition=0", len(mixInputs))},
		Outputs: []string{out},
	})
	return out
}

var textSanitizer = strings.NewReplacer(
	"'", "",
	`\`, "",
	":", `\:`,
	",", `\,`,
	";", `\;`,
	"%", `\%`,
	"[", `\[`,
	"]", `\]`,
)

// SanitizeText strips and escapes the characters that would break the
// drawtext delimiter grammar. Literal text only; no expansion happens.
func SanitizeText(s string) string {
	return textSanitizer.Replace(s)
}
