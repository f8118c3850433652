package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ivlev/timeline2video/internal/render"
	"github.com/ivlev/timeline2video/internal/timeline"
)

// stitch склеивает чанки в порядке таймлайна. Без фоновой дорожки — чистая
// склейка потоков без перекодирования; с дорожкой перекодируется только
// аудио, видео копируется как есть.
func (p *Pipeline) stitch(ctx context.Context, workspace string, chunks []string, project *timeline.Project, resolved map[string]string, output string) error {
	listFile, err := writeConcatList(workspace, chunks)
	if err != nil {
		return err
	}

	var bgPath string
	if bg := project.BackgroundTrack; bg != nil {
		var ok bool
		bgPath, ok = resolved[bg.Source]
		if !ok {
			return fmt.Errorf("фоновая дорожка %q не была разрешена", bg.Source)
		}
	}

	args := stitchArgs(listFile, output, project.BackgroundTrack, bgPath, project.Settings)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return &render.EngineError{Scene: -1, Output: strings.TrimSpace(string(out)), Err: err}
	}
	return nil
}

// stitchArgs собирает аргументы финального вызова ffmpeg. Фон зацикливается
// бесконечно, приглушается и примешивается к программному звуку; -shortest
// обрезает результат по короткому из двух потоков.
func stitchArgs(listFile, output string, bg *timeline.BackgroundTrack, bgPath string, settings timeline.Settings) []string {
	if bg == nil {
		return []string{
			"-y",
			"-f", "concat", "-safe", "0", "-i", listFile,
			"-c", "copy",
			output,
		}
	}
	return []string{
		"-y",
		"-f", "concat", "-safe", "0", "-i", listFile,
		"-stream_loop", "-1", "-i", bgPath,
		"-filter_complex", fmt.Sprintf("[1:a]volume=%g[bg];[0:a][bg]amix=inputs=2:duration=first[afinal]", bg.Volume),
		"-map", "0:v", "-map", "[afinal]",
		"-c:v", "copy",
		"-c:a", settings.AudioCodec, "-b:a", settings.AudioBitrate,
		"-shortest",
		output,
	}
}

// writeConcatList готовит список входов для concat-демультиплексора,
// сохраняя порядок чанков в точности.
func writeConcatList(workspace string, chunks []string) (string, error) {
	var b strings.Builder
	for _, chunk := range chunks {
		abs, err := filepath.Abs(chunk)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}
	listFile := filepath.Join(workspace, "inputs.txt")
	if err := os.WriteFile(listFile, []byte(b.String()), 0644); err != nil {
		return "", err
	}
	return listFile, nil
}
