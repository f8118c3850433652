package render

import (
	"context"
	"strings"
	"testing"

	"github.com/ivlev/timeline2video/internal/timeline"
)

func TestAssignInputsDedup(t *testing.T) {
	assets := map[string]string{
		"logo.png":  "/ws/logo.png",
		"clip.mp4":  "/ws/clip.mp4",
		"voice.mp3": "/ws/voice.mp3",
	}
	layers := []timeline.Layer{
		timeline.ImageLayer{VisualPlacement: timeline.VisualPlacement{Source: "logo.png"}},
		timeline.VideoLayer{VisualPlacement: timeline.VisualPlacement{Source: "clip.mp4"}},
		timeline.TextLayer{Content: "no input"},
		// Same file referenced again: must share the first index
		timeline.ImageLayer{VisualPlacement: timeline.VisualPlacement{Source: "logo.png"}},
		timeline.AudioLayer{Source: "voice.mp3"},
	}

	inputs, indexOf := assignInputs(layers, assets)

	want := []string{"/ws/logo.png", "/ws/clip.mp4", "/ws/voice.mp3"}
	if len(inputs) != len(want) {
		t.Fatalf("Expected %d inputs, got %d: %v", len(want), len(inputs), inputs)
	}
	for i, path := range want {
		if inputs[i] != path {
			t.Errorf("Input %d: expected %q, got %q", i, path, inputs[i])
		}
	}

	// Index 0 is the canvas, real inputs start at 1
	if indexOf("logo.png") != 1 {
		t.Errorf("logo.png should map to input 1, got %d", indexOf("logo.png"))
	}
	if indexOf("clip.mp4") != 2 {
		t.Errorf("clip.mp4 should map to input 2, got %d", indexOf("clip.mp4"))
	}
	if indexOf("voice.mp3") != 3 {
		t.Errorf("voice.mp3 should map to input 3, got %d", indexOf("voice.mp3"))
	}
}

func TestAssignInputsSharedPath(t *testing.T) {
	// Two different source strings resolving to one local file share one index
	assets := map[string]string{
		"a.png":             "/ws/same.png",
		"https://cdn/a.png": "/ws/same.png",
	}
	layers := []timeline.Layer{
		timeline.ImageLayer{VisualPlacement: timeline.VisualPlacement{Source: "a.png"}},
		timeline.ImageLayer{VisualPlacement: timeline.VisualPlacement{Source: "https://cdn/a.png"}},
	}

	inputs, indexOf := assignInputs(layers, assets)
	if len(inputs) != 1 {
		t.Fatalf("Expected 1 input, got %d", len(inputs))
	}
	if indexOf("a.png") != indexOf("https://cdn/a.png") {
		t.Error("Sources sharing a resolved path must share an input index")
	}
}

func TestQualityArgs(t *testing.T) {
	tests := []struct {
		encoder string
		want    string
	}{
		{"libx264", "-crf 23 -preset ultrafast"},
		{"h264_nvenc", "-cq 23"},
		{"h264_videotoolbox", "-b:v 2300k"},
	}
	for _, tt := range tests {
		t.Run(tt.encoder, func(t *testing.T) {
			got := strings.Join(qualityArgs(tt.encoder, 23, "ultrafast"), " ")
			if got != tt.want {
				t.Errorf("qualityArgs(%s) = %q, want %q", tt.encoder, got, tt.want)
			}
		})
	}
}

func TestEncoderPrecedence(t *testing.T) {
	// The spec's video_codec must reach ffmpeg when no explicit encoder is set
	r := &Renderer{Settings: timeline.Settings{VideoCodec: "libx265"}}
	if got := r.encoder(); got != "libx265" {
		t.Errorf("Spec-declared video_codec ignored: encoder() = %q", got)
	}

	// An explicit encoder (flag or autodetect result) beats the spec
	r = &Renderer{Encoder: "h264_nvenc", Settings: timeline.Settings{VideoCodec: "libx265"}}
	if got := r.encoder(); got != "h264_nvenc" {
		t.Errorf("Explicit encoder lost: %q", got)
	}

	// Nothing set anywhere: plain software fallback
	r = &Renderer{}
	if got := r.encoder(); got != "libx264" {
		t.Errorf("Expected libx264 fallback, got %q", got)
	}
}

func TestSceneDurationExplicitWins(t *testing.T) {
	r := &Renderer{}
	scene := &timeline.Scene{
		Duration: 7.25,
		Layers: []timeline.Layer{
			timeline.AudioLayer{Source: "voice.mp3", Role: timeline.RoleMain},
		},
	}
	// Explicit duration short-circuits before any probing
	if got := r.SceneDuration(context.Background(), scene, 0); got != 7.25 {
		t.Errorf("Expected 7.25, got %g", got)
	}
}

func TestSceneDurationDefaultWithoutAudio(t *testing.T) {
	r := &Renderer{}
	scene := &timeline.Scene{
		Layers: []timeline.Layer{timeline.TextLayer{Content: "hi"}},
	}
	if got := r.SceneDuration(context.Background(), scene, 0); got != DefaultSceneDuration {
		t.Errorf("Expected default %g, got %g", DefaultSceneDuration, got)
	}
}

func TestSceneDurationUnresolvedAudioFallsBack(t *testing.T) {
	r := &Renderer{Assets: map[string]string{}}
	scene := &timeline.Scene{
		Layers: []timeline.Layer{timeline.AudioLayer{Source: "ghost.mp3"}},
	}
	if got := r.SceneDuration(context.Background(), scene, 0); got != DefaultSceneDuration {
		t.Errorf("Expected default %g, got %g", DefaultSceneDuration, got)
	}
}
