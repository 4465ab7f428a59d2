package ffmpeg

import (
	"fmt"
	"regexp"
	"strings"
)

// EncodeError is a failed media transform. It carries the tail of ffmpeg's
// stderr so callers can surface the underlying tool's diagnostic verbatim.
type EncodeError struct {
	Op     string // Transform name: "sync", "concat", "merge", "trim", "tts".
	Stderr string
	Err    error
}

func (e *EncodeError) Error() string {
	tail := StderrTail(e.Stderr, 3)
	if tail == "" {
		return fmt.Sprintf("ffmpeg %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ffmpeg %s: %v: %s", e.Op, e.Err, tail)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// StderrTail returns the last n non-empty lines of stderr joined by "; ".
func StderrTail(stderr string, n int) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	var kept []string
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "; ")
}

// Pre-compiled regexes classifying capture-process stderr into the
// backend-unavailable category: the platform capture facility is missing or
// inaccessible rather than the command being wrong.
var (
	rePermissionIssue = regexp.MustCompile(
		`(?i)operation not permitted|` +
			`not authorized to capture|` +
			`screen recording permission|` +
			`abort_on_error|` +
			`failed to create screen capture`)

	reDisplayIssue = regexp.MustCompile(
		`(?i)cannot open display|` +
			`could not open x11 display|` +
			`no such display|` +
			`x11grab.*connection refused`)

	reDeviceIssue = regexp.MustCompile(
		`(?i)input/output error.*avfoundation|` +
			`selected.*device.*is not available|` +
			`could not find video device|` +
			`device or resource busy`)
)

// MatchBackendUnavailable reports whether capture stderr indicates the
// platform capture facility is inaccessible (missing OS permission, no
// display, device busy) as opposed to a malformed invocation.
func MatchBackendUnavailable(stderr string) bool {
	return rePermissionIssue.MatchString(stderr) ||
		reDisplayIssue.MatchString(stderr) ||
		reDeviceIssue.MatchString(stderr)
}
