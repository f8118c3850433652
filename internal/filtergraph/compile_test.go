package filtergraph

import (
	"strings"
	"testing"

	"github.com/ivlev/timeline2video/internal/timeline"
)

func staticIndex(m map[string]int) InputIndex {
	return func(source string) int { return m[source] }
}

func visual(source, resize, durMode string, opacity float64) timeline.VisualPlacement {
	return timeline.VisualPlacement{
		Source:       source,
		Opacity:      opacity,
		ResizeMode:   resize,
		DurationMode: durMode,
	}
}

func TestCompileEmptyScene(t *testing.T) {
	if _, err := Compile(nil, staticIndex(nil), 5, 1080, 1920); err == nil {
		t.Error("Expected error for a scene without layers")
	}
}

func TestCompileSingleVideo(t *testing.T) {
	layers := []timeline.Layer{
		timeline.VideoLayer{VisualPlacement: visual("clip.mp4", timeline.ResizeCover, timeline.DurationTrim, 1)},
	}
	g, err := Compile(layers, staticIndex(map[string]int{"clip.mp4": 1}), 8, 1080, 1920)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	got := g.String()
	want := "[0:v]null[v0];" +
		"[1:v]setpts=N/FRAME_RATE/TB,scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920,trim=duration=8[vin0];" +
		"[v0][vin0]overlay=x=(W-w)/2:y=(H-h)/2:eof_action=pass:shortest=1[v1];" +
		"anullsrc=channel_layout=stereo:sample_rate=44100:d=8[aout]"
	if got != want {
		t.Errorf("Graph mismatch:\n got %s\nwant %s", got, want)
	}
	if g.VideoOut != "v1" || g.AudioOut != "aout" {
		t.Errorf("Unexpected output labels: %s / %s", g.VideoOut, g.AudioOut)
	}
}

func TestCompileResizeModes(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		{timeline.ResizeCover, "scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920"},
		{timeline.ResizeContain, "scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2"},
		{timeline.ResizeStretch, "scale=1080:1920"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			layers := []timeline.Layer{
				timeline.ImageLayer{VisualPlacement: visual("a.png", tt.mode, timeline.DurationTrim, 1)},
			}
			g, err := Compile(layers, staticIndex(map[string]int{"a.png": 1}), 5, 1080, 1920)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			if !strings.Contains(g.String(), tt.want) {
				t.Errorf("Expected %q in graph:\n%s", tt.want, g.String())
			}
		})
	}
}

func TestCompileLoopAndOpacity(t *testing.T) {
	layers := []timeline.Layer{
		timeline.VideoLayer{VisualPlacement: visual("bg.mp4", timeline.ResizeCover, timeline.DurationLoop, 0.5)},
	}
	g, err := Compile(layers, staticIndex(map[string]int{"bg.mp4": 1}), 8, 1080, 1920)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	chain := g.Nodes[1].String()
	if !strings.HasPrefix(chain, "[1:v]loop=loop=-1:size=32767:start=0,setpts=") {
		t.Errorf("Loop must open the transform chain: %s", chain)
	}
	if !strings.Contains(chain, "colorchannelmixer=aa=0.5") {
		t.Errorf("Opacity multiplier missing: %s", chain)
	}
	if !strings.Contains(chain, "trim=duration=8") {
		t.Errorf("Trim to scene duration missing: %s", chain)
	}
}

func TestCompileStackingOrder(t *testing.T) {
	// A video then a text declared afterward: text draws after (on top of)
	// the video composite.
	layers := []timeline.Layer{
		timeline.VideoLayer{VisualPlacement: visual("clip.mp4", timeline.ResizeCover, timeline.DurationTrim, 1)},
		timeline.TextLayer{Content: "Title"},
	}
	g, err := Compile(layers, staticIndex(map[string]int{"clip.mp4": 1}), 5, 1080, 1920)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	serialized := g.String()
	overlayAt := strings.Index(serialized, "overlay=")
	drawtextAt := strings.Index(serialized, "drawtext=")
	if overlayAt < 0 || drawtextAt < 0 {
		t.Fatalf("Missing nodes in graph: %s", serialized)
	}
	if drawtextAt < overlayAt {
		t.Errorf("Text must composite after the video overlay: %s", serialized)
	}
	// The text node consumes the overlay output
	textNode := g.Nodes[3]
	if textNode.Inputs[0] != "v1" || g.VideoOut != "v2" {
		t.Errorf("Unexpected chaining: %+v, out %s", textNode, g.VideoOut)
	}
}

func TestCompileTwoVisualsStack(t *testing.T) {
	layers := []timeline.Layer{
		timeline.ImageLayer{VisualPlacement: visual("a.png", timeline.ResizeCover, timeline.DurationTrim, 1)},
		timeline.ImageLayer{VisualPlacement: visual("b.png", timeline.ResizeCover, timeline.DurationTrim, 1)},
	}
	g, err := Compile(layers, staticIndex(map[string]int{"a.png": 1, "b.png": 2}), 5, 1080, 1920)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	// Layer B overlays onto the composite that already contains A, so B is on top
	last := g.Nodes[4]
	if last.Inputs[0] != "v1" || last.Inputs[1] != "vin1" {
		t.Errorf("Second overlay must take the first composite as base: %+v", last)
	}
}

func TestCompileAudioChain(t *testing.T) {
	layers := []timeline.Layer{
		timeline.ImageLayer{VisualPlacement: visual("a.png", timeline.ResizeCover, timeline.DurationTrim, 1)},
		timeline.AudioLayer{Source: "voice.mp3", Volume: 0.8, Role: timeline.RoleMain},
		timeline.AudioLayer{Source: "sfx.wav", Volume: 1},
	}
	g, err := Compile(layers, staticIndex(map[string]int{"a.png": 1, "voice.mp3": 2, "sfx.wav": 3}), 8, 1080, 1920)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	serialized := g.String()
	wantChain := "[2:a]apad=whole_dur=8,atrim=duration=8,asetpts=N/SR/TB,volume=0.8[a1]"
	if !strings.Contains(serialized, wantChain) {
		t.Errorf("Expected audio chain %q in graph:\n%s", wantChain, serialized)
	}
	if !strings.Contains(serialized, "[a1][a2]amix=inputs=2:duration=first:dropout_transition=0[aout]") {
		t.Errorf("Expected 2-input amix in mix order of declaration:\n%s", serialized)
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"it's 10:30", `its 10\:30`},
		{"a,b;c", `a\,b\;c`},
		{`100% done\`, `100\% done`},
		{"[tag]", `\[tag\]`},
	}
	for _, tt := range tests {
		if got := SanitizeText(tt.in); got != tt.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNodeString(t *testing.T) {
	n := Node{
		Inputs:  []string{"v0", "vin0"},
		Filters: []string{"overlay=x=0:y=0"},
		Outputs: []string{"v1"},
	}
	if got := n.String(); got != "[v0][vin0]overlay=x=0:y=0[v1]" {
		t.Errorf("Unexpected serialization: %s", got)
	}
}
