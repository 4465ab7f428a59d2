// Package capture starts and stops ffmpeg screen-recording processes. Each
// platform maps to a different ffmpeg input device: avfoundation on macOS,
// x11grab on Linux, gdigrab on Windows. The virtual backend records a
// headless X display and exists for containers with no physical screen.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/demoreel/demoreel/internal/config"
)

// Sentinel errors for capture lifecycle failures.
var (
	// ErrAlreadyRunning means this backend instance already has a live
	// capture process.
	ErrAlreadyRunning = errors.New("capture already running")
	// ErrNotRunning means Stop was called with no live capture process.
	ErrNotRunning = errors.New("no capture running")
	// ErrWindowNotFound means the requested window title matched nothing.
	ErrWindowNotFound = errors.New("capture window not found")
	// ErrBackendUnavailable means the platform capture facility is missing
	// or inaccessible (no display, no screen-recording permission).
	ErrBackendUnavailable = errors.New("capture backend unavailable")
	// ErrIncompleteArtifact means the capture process exited but left no
	// playable file behind.
	ErrIncompleteArtifact = errors.New("recording artifact incomplete")
)

// Target selects what to record. An empty WindowTitle means the full screen.
type Target struct {
	WindowTitle string
}

// Options are per-recording capture parameters, already defaulted from the
// server configuration by the caller.
type Options struct {
	Width       int
	Height      int
	FPS         int
	ScreenIndex int
	OutputPath  string
}

// Artifact describes a finished recording on disk.
type Artifact struct {
	Path      string
	SizeBytes int64
	Duration  float64
}

// Backend runs at most one capture process at a time.
type Backend interface {
	// Name identifies the backend ("host" or "virtual") for diagnostics.
	Name() string
	// Start launches the capture process and confirms it survived startup.
	Start(ctx context.Context, target Target, opts Options) error
	// Stop ends the capture gracefully and verifies the artifact.
	Stop(ctx context.Context) (Artifact, error)
	// Alive reports whether the capture process is still running.
	Alive() bool
}

// Logger is the subset of the logging package this package needs.
type Logger interface {
	Record(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

// New selects a backend from the configuration. BackendAuto picks virtual
// inside a container and host otherwise.
func New(cfg *config.Config, log Logger) (Backend, error) {
	kind := cfg.CaptureBackend
	if kind == config.BackendAuto {
		if IsContainer() {
			kind = config.BackendVirtual
		} else {
			kind = config.BackendHost
		}
	}

	switch kind {
	case config.BackendVirtual:
		return newVirtualBackend(cfg, log), nil
	case config.BackendHost:
		switch runtime.GOOS {
		case "darwin", "linux", "windows":
			return newHostBackend(cfg, log), nil
		default:
			return nil, fmt.Errorf("%w: no host capture on %s", ErrBackendUnavailable, runtime.GOOS)
		}
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrBackendUnavailable, kind)
	}
}

// IsContainer reports whether the process appears to run inside a container.
// Checks the docker/podman marker files, the CONTAINER env var, and the
// cgroup listing.
func IsContainer() bool {
	for _, marker := range []string{"/.dockerenv", "/run/.containerenv"} {
		if _, err := os.Stat(marker); err == nil {
			return true
		}
	}
	if os.Getenv("CONTAINER") != "" {
		return true
	}
	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		s := string(data)
		if strings.Contains(s, "docker") || strings.Contains(s, "kubepods") || strings.Contains(s, "containerd") {
			return true
		}
	}
	return false
}

// EvenDimensions clamps a size to even numbers. libx264 with yuv420p rejects
// odd dimensions.
func EvenDimensions(w, h int) (int, int) {
	return w &^ 1, h &^ 1
}
