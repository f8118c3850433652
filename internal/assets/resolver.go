package assets

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ResolutionError — источник не удалось скачать/декодировать после всех
// попыток, либо его тип не распознан. Фатально для всего запуска.
type ResolutionError struct {
	Source string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("не удалось получить ресурс %q: %v", e.Source, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolver скачивает и декодирует все ресурсы таймлайна в рабочую
// директорию запуска. Один источник — один файл, повторные обращения
// попадают в кеш по детерминированному имени.
type Resolver struct {
	Dir        string        // рабочая директория запуска
	Workers    int           // размер пула (по умолчанию 4)
	Attempts   int           // попыток на скачивание (по умолчанию 3)
	RetryDelay time.Duration // базовая задержка, удваивается (1s, 2s, 4s)
	Timeout    time.Duration // таймаут одной попытки
	DPI        int           // DPI растеризации PDF-источников
	Client     *http.Client
	Log        *log.Logger
}

const (
	defaultWorkers    = 4
	defaultAttempts   = 3
	defaultRetryDelay = time.Second
	defaultTimeout    = 60 * time.Second
	defaultPDFDPI     = 300
)

func (r *Resolver) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return defaultWorkers
}

func (r *Resolver) attempts() int {
	if r.Attempts > 0 {
		return r.Attempts
	}
	return defaultAttempts
}

func (r *Resolver) retryDelay() time.Duration {
	if r.RetryDelay > 0 {
		return r.RetryDelay
	}
	return defaultRetryDelay
}

func (r *Resolver) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return defaultTimeout
}

func (r *Resolver) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return http.DefaultClient
}

func (r *Resolver) logf(format string, args ...any) {
	if r.Log != nil {
		r.Log.Printf(format, args...)
	}
}

// Resolve обрабатывает все источники пулом воркеров и возвращает отображение
// источник → локальный путь. Первая фатальная ошибка отменяет остальные
// задачи; частичный результат наружу не отдается.
func (r *Resolver) Resolve(ctx context.Context, sources []string) (map[string]string, error) {
	distinct := dedup(sources)
	paths := make([]string, len(distinct))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i, src := range distinct {
		g.Go(func() error {
			path, err := r.resolveOne(ctx, src)
			if err != nil {
				return &ResolutionError{Source: src, Err: err}
			}
			// Каждая задача пишет только в свой слот, гонок нет.
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resolved := make(map[string]string, len(distinct))
	for i, src := range distinct {
		resolved[src] = paths[i]
	}
	return resolved, nil
}

func dedup(sources []string) []string {
	seen := make(map[string]bool, len(sources))
	var out []string
	for _, s := range sources {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func (r *Resolver) resolveOne(ctx context.Context, source string) (string, error) {
	var path string
	var err error
	switch {
	case strings.HasPrefix(source, "data:"):
		path, err = r.decodeInline(source)
	case strings.HasPrefix(source, "qr:"):
		path, err = r.renderQR(source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		path, err = r.download(ctx, source)
	default:
		path, err = r.localPath(source)
	}
	if err != nil {
		return "", err
	}
	// PDF-источники ffmpeg не принимает: растеризуем первую страницу.
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return r.rasterizePDF(path)
	}
	return path, nil
}

func (r *Resolver) localPath(source string) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("неизвестный источник или отсутствующий файл: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("источник %q — директория", source)
	}
	return source, nil
}

// download сохраняет URL в файл с детерминированным именем. Если файл уже
// есть (тот же источник в прошлом или параллельном вызове Resolve),
// повторного скачивания не происходит.
func (r *Resolver) download(ctx context.Context, source string) (string, error) {
	dest := filepath.Join(r.Dir, cacheKey(source)+urlExt(source))
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	delay := r.retryDelay()
	attempts := r.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		lastErr = r.fetch(ctx, source, dest)
		if lastErr == nil {
			return dest, nil
		}
		if attempt < attempts {
			r.logf("[!] Попытка %d/%d не удалась (%s): %v", attempt, attempts, source, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			delay *= 2
		}
	}
	return "", lastErr
}

func (r *Resolver) fetch(ctx context.Context, source, dest string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return err
	}
	// Оригинальный движок представлялся браузером; часть CDN этого требует.
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := r.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %s", resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return err
	}
	return f.Close()
}

// cacheKey — стабильный дайджест строки источника. Имена файлов
// воспроизводимы между запусками, в отличие от случайных temp-имен.
func cacheKey(source string) string {
	sum := sha1.Sum([]byte(source))
	return hex.EncodeToString(sum[:])
}

// urlExt derives a file extension from the URL path, dropping query strings.
func urlExt(source string) string {
	trimmed := source
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	ext := filepath.Ext(trimmed)
	if ext == "" || len(ext) > 8 {
		return ".bin"
	}
	return ext
}
