package system

import (
	"fmt"
	"log"
	"os/exec"
	"runtime"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// InitResourceLimits пытается увеличить лимит открытых файлов: сцена с
// десятком слоев плюс параллельные скачивания быстро упираются в дефолт.
func InitResourceLimits(logger *log.Logger) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Printf("[!] Не удалось установить лимит файлов: %v", err)
	}
}

// DefaultWorkers подбирает размер пула скачивания: физические ядра, но не
// больше четырех — сеть все равно упрется раньше.
func DefaultWorkers() int {
	count, err := cpu.Counts(false)
	if err != nil || count <= 0 {
		count = runtime.NumCPU()
	}
	if count > 4 {
		count = 4
	}
	if count < 1 {
		count = 1
	}
	return count
}

// WarnLowMemory предупреждает, если свободной памяти меньше гигабайта:
// ffmpeg с filter_complex на большом холсте легко уходит в своп.
func WarnLowMemory(logger *log.Logger) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return
	}
	const gig = 1 << 30
	if vm.Available < gig {
		logger.Printf("[!] Свободной памяти мало (%d МБ), рендеринг может замедлиться", vm.Available>>20)
	}
}

// DetectEncoder возвращает лучший доступный H264-энкодер.
// Приоритет: VideoToolbox (macOS) → NVENC (NVIDIA) → libx264.
func DetectEncoder() string {
	candidates := []string{"h264_videotoolbox", "h264_nvenc"}

	out, err := exec.Command("ffmpeg", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	for _, name := range candidates {
		if strings.Contains(string(out), name) {
			return name
		}
	}
	return "libx264"
}

// CheckBinaries проверяет наличие внешних движков до начала работы.
func CheckBinaries() error {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("не найден %s: %w", bin, err)
		}
	}
	return nil
}
