package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/demoreel/demoreel/internal/config"
	"github.com/demoreel/demoreel/internal/winmgr"
)

// hostBackend records the machine's real display through the platform's
// ffmpeg input device.
type hostBackend struct {
	cfg *config.Config
	run *runner
}

func newHostBackend(cfg *config.Config, log Logger) *hostBackend {
	return &hostBackend{
		cfg: cfg,
		run: newRunner(log, cfg.StopTimeoutSeconds, cfg.Verbose),
	}
}

func (b *hostBackend) Name() string { return "host" }

func (b *hostBackend) Start(ctx context.Context, target Target, opts Options) error {
	args, err := b.captureArgs(ctx, target, opts)
	if err != nil {
		return err
	}
	return b.run.launch(ctx, args, opts.OutputPath)
}

func (b *hostBackend) Stop(ctx context.Context) (Artifact, error) {
	return b.run.halt(ctx)
}

func (b *hostBackend) Alive() bool { return b.run.alive() }

func (b *hostBackend) captureArgs(ctx context.Context, target Target, opts Options) ([]string, error) {
	bounds, err := resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}
	switch runtime.GOOS {
	case "darwin":
		return DarwinCaptureArgs(opts, bounds), nil
	case "linux":
		display := os.Getenv("DISPLAY")
		if display == "" {
			return nil, fmt.Errorf("%w: DISPLAY is not set", ErrBackendUnavailable)
		}
		return LinuxCaptureArgs(display, opts, bounds), nil
	case "windows":
		return WindowsCaptureArgs(target.WindowTitle, opts), nil
	default:
		return nil, fmt.Errorf("%w: no host capture on %s", ErrBackendUnavailable, runtime.GOOS)
	}
}

// resolveTarget turns a window title into screen bounds. Windows capture
// targets by title directly so it skips resolution.
func resolveTarget(ctx context.Context, target Target) (*winmgr.Bounds, error) {
	if target.WindowTitle == "" || runtime.GOOS == "windows" {
		return nil, nil
	}
	win, err := winmgr.Resolve(ctx, target.WindowTitle)
	if err != nil {
		if errors.Is(err, winmgr.ErrWindowNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrWindowNotFound, target.WindowTitle)
		}
		return nil, err
	}
	if win.Bounds == nil || win.Bounds.Width <= 0 || win.Bounds.Height <= 0 {
		return nil, nil
	}
	return win.Bounds, nil
}

// encodeTail is the shared encoder configuration for live capture. ultrafast
// keeps encoding ahead of the frame rate on modest hardware; yuv420p keeps
// the output playable everywhere.
func encodeTail(outputPath string) []string {
	return []string{
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		outputPath,
	}
}

// DarwinCaptureArgs builds the avfoundation capture command. A window target
// becomes a crop of the full-screen grab since avfoundation has no per-window
// input. Exported for testing.
func DarwinCaptureArgs(opts Options, bounds *winmgr.Bounds) []string {
	args := []string{
		"-y", "-hide_banner",
		"-f", "avfoundation",
		"-capture_cursor", "1",
		"-framerate", fmt.Sprint(opts.FPS),
		"-pixel_format", "uyvy422",
		"-i", fmt.Sprintf("%d:none", opts.ScreenIndex),
	}

	w, h := EvenDimensions(opts.Width, opts.Height)
	if bounds != nil {
		cw, ch := EvenDimensions(bounds.Width, bounds.Height)
		args = append(args, "-vf",
			fmt.Sprintf("crop=%d:%d:%d:%d,scale=%d:%d", cw, ch, bounds.X, bounds.Y, w, h))
	} else {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", w, h))
	}
	return append(args, encodeTail(opts.OutputPath)...)
}

// LinuxCaptureArgs builds the x11grab capture command. A window target
// narrows the grab region to the window's rectangle. Exported for testing.
func LinuxCaptureArgs(display string, opts Options, bounds *winmgr.Bounds) []string {
	w, h := EvenDimensions(opts.Width, opts.Height)
	x, y := 0, 0
	if bounds != nil {
		w, h = EvenDimensions(bounds.Width, bounds.Height)
		x, y = bounds.X, bounds.Y
	}
	args := []string{
		"-y", "-hide_banner",
		"-f", "x11grab",
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-framerate", fmt.Sprint(opts.FPS),
		"-i", fmt.Sprintf("%s+%d,%d", display, x, y),
	}
	return append(args, encodeTail(opts.OutputPath)...)
}

// WindowsCaptureArgs builds the gdigrab capture command. gdigrab targets a
// window by exact title, so no bounds resolution is needed; the crop filter
// clamps odd window dimensions for the encoder. Exported for testing.
func WindowsCaptureArgs(windowTitle string, opts Options) []string {
	args := []string{
		"-y", "-hide_banner",
		"-f", "gdigrab",
		"-framerate", fmt.Sprint(opts.FPS),
	}
	if windowTitle != "" {
		args = append(args,
			"-i", "title="+windowTitle,
			"-vf", "crop=trunc(iw/2)*2:trunc(ih/2)*2",
		)
	} else {
		w, h := EvenDimensions(opts.Width, opts.Height)
		args = append(args,
			"-i", "desktop",
			"-vf", fmt.Sprintf("scale=%d:%d", w, h),
		)
	}
	return append(args, encodeTail(opts.OutputPath)...)
}
