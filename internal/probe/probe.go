// Package probe measures media durations through ffprobe. Failures here are
// recoverable: callers substitute a default duration instead of aborting.
package probe

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Error wraps an ffprobe failure for a specific media file.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Duration returns the media duration in seconds.
func Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, &Error{Path: path, Err: fmt.Errorf("%v: %s", err, strings.TrimSpace(string(out)))}
	}
	seconds, err := parseSeconds(string(out))
	if err != nil {
		return 0, &Error{Path: path, Err: err}
	}
	return seconds, nil
}

func parseSeconds(out string) (float64, error) {
	trimmed := strings.TrimSpace(out)
	seconds, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q", trimmed)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("non-positive duration %g", seconds)
	}
	return seconds, nil
}
