package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/ivlev/timeline2video/internal/assets"
	"github.com/ivlev/timeline2video/internal/config"
	"github.com/ivlev/timeline2video/internal/engine"
	"github.com/ivlev/timeline2video/internal/render"
	"github.com/ivlev/timeline2video/internal/system"
	"github.com/ivlev/timeline2video/internal/timeline"
)

const (
	exitValidation = 2
	exitAssets     = 3
	exitEngine     = 4
)

func main() {
	specPtr := flag.String("spec", "", "Путь к спецификации таймлайна (.json или .yaml)")
	outputPtr := flag.String("output", "", "Путь к финальному видео (по умолчанию output/final.mp4)")
	workersPtr := flag.Int("workers", system.DefaultWorkers(), "Потоки скачивания ресурсов")
	widthPtr := flag.Int("width", 0, "Ширина холста (переопределяет спецификацию)")
	heightPtr := flag.Int("height", 0, "Высота холста (переопределяет спецификацию)")
	qualityPtr := flag.Int("quality", 0, "Качество видео (x264: CRF, NVENC: CQ, VideoToolbox: битрейт = Q*100кбит/с)")
	encoderPtr := flag.String("encoder", "", "Видеокодек (сильнее video_codec из спецификации; пусто — кодек спецификации или автоопределение)")
	attemptsPtr := flag.Int("fetch-attempts", 3, "Попыток скачивания одного ресурса")
	timeoutPtr := flag.Duration("fetch-timeout", time.Minute, "Таймаут одной попытки скачивания")
	dpiPtr := flag.Int("dpi", 300, "DPI растеризации PDF-источников")
	keepPtr := flag.Bool("keep-workspace", false, "Не удалять рабочую директорию (для отладки)")
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	if *specPtr == "" {
		logger.Println("[-] Не указан флаг -spec")
		flag.Usage()
		os.Exit(exitValidation)
	}

	system.InitResourceLimits(logger)
	system.WarnLowMemory(logger)
	if err := system.CheckBinaries(); err != nil {
		logger.Printf("[-] %v", err)
		os.Exit(1)
	}

	cfg := &config.Config{
		SpecPath:      *specPtr,
		OutputPath:    *outputPtr,
		Workers:       *workersPtr,
		Width:         *widthPtr,
		Height:        *heightPtr,
		Quality:       *qualityPtr,
		VideoEncoder:  *encoderPtr,
		FetchAttempts: *attemptsPtr,
		FetchTimeout:  *timeoutPtr,
		PDFDPI:        *dpiPtr,
		KeepWorkspace: *keepPtr,
	}

	project, err := timeline.Load(cfg.SpecPath)
	if err != nil {
		logger.Printf("[-] Ошибка чтения спецификации: %v", err)
		os.Exit(exitCode(err))
	}

	pipeline := engine.New(cfg, logger)
	if _, err := pipeline.Run(context.Background(), project); err != nil {
		logger.Printf("[-] Ошибка проекта: %v", err)
		os.Exit(exitCode(err))
	}
}

// exitCode переводит класс ошибки в код выхода процесса; fail-fast семантика
// сохранена, диагностика движка остается в тексте ошибки.
func exitCode(err error) int {
	var validation *timeline.ValidationError
	if errors.As(err, &validation) {
		return exitValidation
	}
	var resolution *assets.ResolutionError
	if errors.As(err, &resolution) {
		return exitAssets
	}
	var engineErr *render.EngineError
	if errors.As(err, &engineErr) {
		return exitEngine
	}
	return 1
}
