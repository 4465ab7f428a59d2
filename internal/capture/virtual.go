package capture

import (
	"context"
	"fmt"

	"github.com/demoreel/demoreel/internal/config"
)

// virtualBackend records a headless X display (Xvfb or similar) with x11grab.
// It is the default inside containers, where there is no physical screen and
// the display geometry is whatever the virtual server was started with.
type virtualBackend struct {
	cfg *config.Config
	run *runner
}

func newVirtualBackend(cfg *config.Config, log Logger) *virtualBackend {
	return &virtualBackend{
		cfg: cfg,
		run: newRunner(log, cfg.StopTimeoutSeconds, cfg.Verbose),
	}
}

func (b *virtualBackend) Name() string { return "virtual" }

func (b *virtualBackend) Start(ctx context.Context, target Target, opts Options) error {
	if target.WindowTitle != "" {
		return fmt.Errorf("%w: virtual backend records the whole display, not windows", ErrWindowNotFound)
	}
	args := VirtualCaptureArgs(b.cfg.Display, opts)
	return b.run.launch(ctx, args, opts.OutputPath)
}

func (b *virtualBackend) Stop(ctx context.Context) (Artifact, error) {
	return b.run.halt(ctx)
}

func (b *virtualBackend) Alive() bool { return b.run.alive() }

// VirtualCaptureArgs builds the x11grab command against the configured
// virtual display. Exported for testing.
func VirtualCaptureArgs(display string, opts Options) []string {
	w, h := EvenDimensions(opts.Width, opts.Height)
	args := []string{
		"-y", "-hide_banner",
		"-f", "x11grab",
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-framerate", fmt.Sprint(opts.FPS),
		"-i", display,
	}
	return append(args, encodeTail(opts.OutputPath)...)
}
