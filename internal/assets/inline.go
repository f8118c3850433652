package assets

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	// Регистрация декодеров webp/bmp: inline-картинки в этих форматах
	// определяются по содержимому, а не только по mime-токену.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// decodeInline разбирает источник вида data:<mime>;base64,<payload> и
// сохраняет его в рабочую директорию. Расширение берется из mime-токена,
// для картинок уточняется по фактическому содержимому.
func (r *Resolver) decodeInline(source string) (string, error) {
	header, encoded, ok := strings.Cut(source, ",")
	if !ok {
		return "", fmt.Errorf("inline-источник без разделителя %q", ",")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Часть генераторов кодирует payload как URL-safe base64.
		data, err = base64.URLEncoding.DecodeString(encoded)
		if err != nil {
			return "", fmt.Errorf("не удалось декодировать base64: %w", err)
		}
	}

	ext := inlineExt(header, data)
	dest := filepath.Join(r.Dir, cacheKey(source)+ext)
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return "", err
	}
	return dest, nil
}

func inlineExt(header string, data []byte) string {
	switch {
	case strings.Contains(header, "image"):
		if format, ok := sniffImage(data); ok {
			return "." + format
		}
		return ".png"
	case strings.Contains(header, "video"):
		return ".mp4"
	case strings.Contains(header, "audio"):
		return ".mp3"
	default:
		return ".bin"
	}
}

// sniffImage определяет реальный формат картинки по зарегистрированным
// декодерам (png/jpeg/gif плюс webp/bmp из x/image).
func sniffImage(data []byte) (string, bool) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || format == "" {
		return "", false
	}
	if format == "jpeg" {
		return "jpg", true
	}
	return format, true
}
