package assets

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	qrcode "github.com/skip2/go-qrcode"
)

// Размер QR-панели в пикселях; слой масштабирует её под себя сам.
const qrPanelSize = 512

// renderQR генерирует QR-код для источника вида qr:<текст>.
func (r *Resolver) renderQR(source string) (string, error) {
	content := strings.TrimPrefix(source, "qr:")
	if content == "" {
		return "", fmt.Errorf("пустое содержимое qr-источника")
	}
	dest := filepath.Join(r.Dir, cacheKey(source)+".png")
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}
	if err := qrcode.WriteFile(content, qrcode.Medium, qrPanelSize, dest); err != nil {
		return "", fmt.Errorf("не удалось сгенерировать QR: %w", err)
	}
	return dest, nil
}

// rasterizePDF превращает первую страницу PDF в PNG: ffmpeg не умеет читать
// PDF напрямую, а таймлайны нередко ссылаются на обложки-страницы.
func (r *Resolver) rasterizePDF(path string) (string, error) {
	dest := filepath.Join(r.Dir, cacheKey(path)+".png")
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("не удалось открыть PDF: %w", err)
	}
	defer doc.Close()

	dpi := r.DPI
	if dpi <= 0 {
		dpi = defaultPDFDPI
	}
	img, err := doc.ImageDPI(0, float64(dpi))
	if err != nil {
		return "", fmt.Errorf("не удалось растеризовать страницу: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(dest)
		return "", err
	}
	return dest, f.Close()
}
