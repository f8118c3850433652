package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ivlev/timeline2video/internal/assets"
	"github.com/ivlev/timeline2video/internal/config"
	"github.com/ivlev/timeline2video/internal/render"
	"github.com/ivlev/timeline2video/internal/system"
	"github.com/ivlev/timeline2video/internal/timeline"
)

// Pipeline прогоняет проект целиком: валидация, разрешение ресурсов,
// поочередный рендеринг сцен и финальная склейка. Любая фатальная ошибка
// обрывает запуск; частичный результат не сохраняется.
type Pipeline struct {
	Config *config.Config
	Log    *log.Logger
}

func New(cfg *config.Config, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Pipeline{Config: cfg, Log: logger}
}

// Run выполняет проект и возвращает путь к финальному файлу. Рабочая
// директория с промежуточными файлами убирается и при успехе, и при ошибке
// (кроме явного KeepWorkspace).
func (p *Pipeline) Run(ctx context.Context, project *timeline.Project) (string, error) {
	if err := project.Validate(); err != nil {
		return "", err
	}

	p.applyOverrides(project)

	workspace, err := os.MkdirTemp("", "timeline2video_")
	if err != nil {
		return "", fmt.Errorf("не удалось создать рабочую директорию: %w", err)
	}
	defer func() {
		if p.Config.KeepWorkspace {
			p.Log.Printf("[*] Рабочая директория сохранена: %s", workspace)
			return
		}
		os.RemoveAll(workspace)
	}()

	// Один глобальный проход по всем источникам: ресурс, встречающийся в
	// нескольких сценах, скачивается один раз.
	resolver := &assets.Resolver{
		Dir:      workspace,
		Workers:  p.Config.Workers,
		Attempts: p.Config.FetchAttempts,
		Timeout:  p.Config.FetchTimeout,
		DPI:      p.Config.PDFDPI,
		Log:      p.Log,
	}
	sources := project.Sources()
	p.Log.Printf("[*] Ресурсов к разрешению: %d", len(sources))
	resolved, err := resolver.Resolve(ctx, sources)
	if err != nil {
		return "", err
	}

	renderer := &render.Renderer{
		Encoder:  p.selectEncoder(project),
		Settings: project.Settings,
		Assets:   resolved,
		Log:      p.Log,
	}

	chunks := make([]string, 0, len(project.Timeline))
	for i := range project.Timeline {
		chunk := filepath.Join(workspace, fmt.Sprintf("chunk_%03d.mp4", i))
		if err := renderer.RenderScene(ctx, &project.Timeline[i], i, chunk); err != nil {
			return "", err
		}
		chunks = append(chunks, chunk)
		p.Log.Printf("[>] Готово: %d/%d", i+1, len(project.Timeline))
	}

	output := p.Config.OutputPath
	if output == "" {
		output = config.DefaultOutput
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
	}

	p.Log.Printf("[*] Склейка финального видео...")
	if err := p.stitch(ctx, workspace, chunks, project, resolved, output); err != nil {
		os.Remove(output)
		return "", err
	}

	p.Log.Printf("[+++] Успех! Результат: %s", output)
	return output, nil
}

// selectEncoder выбирает видеокодек: явный флаг -encoder сильнее
// video_codec из спецификации; автоопределение железа включается только
// когда кодек не задан нигде.
func (p *Pipeline) selectEncoder(project *timeline.Project) string {
	if p.Config.VideoEncoder != "" {
		return p.Config.VideoEncoder
	}
	if project.Settings.VideoCodec != "" {
		return project.Settings.VideoCodec
	}
	name := system.DetectEncoder()
	if name != "libx264" {
		p.Log.Printf("[*] Обнаружено аппаратное ускорение: %s", name)
	}
	return name
}

// applyOverrides накладывает флаги командной строки поверх настроек
// спецификации.
func (p *Pipeline) applyOverrides(project *timeline.Project) {
	if p.Config.Width > 0 {
		project.Settings.Width = p.Config.Width
	}
	if p.Config.Height > 0 {
		project.Settings.Height = p.Config.Height
	}
	if p.Config.Quality > 0 {
		project.Settings.Quality = p.Config.Quality
	}
}
