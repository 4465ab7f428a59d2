package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/demoreel/demoreel/internal/ffmpeg"
	"github.com/demoreel/demoreel/internal/probe"
)

// startupGrace is how long a just-launched capture process gets to fail
// before Start declares it healthy. Backend problems (missing permission,
// dead display) surface within this window.
const startupGrace = 500 * time.Millisecond

// termGrace is how long Stop waits after SIGTERM before killing outright.
const termGrace = 2 * time.Second

// runner owns the single capture process of a backend: launch, liveness,
// graceful stop, artifact verification. Platform backends supply the ffmpeg
// arguments; runner supplies everything else.
type runner struct {
	log         Logger
	stopTimeout time.Duration
	verbose     bool

	mu         sync.Mutex
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stderr     *bytes.Buffer
	done       chan error
	outputPath string
}

func newRunner(log Logger, stopTimeoutSeconds int, verbose bool) *runner {
	return &runner{
		log:         log,
		stopTimeout: time.Duration(stopTimeoutSeconds) * time.Second,
		verbose:     verbose,
	}
}

// launch starts ffmpeg with the given capture arguments and confirms it
// survives the startup grace period. The process is deliberately not bound to
// ctx: a recording must outlive the request that started it.
func (r *runner) launch(ctx context.Context, args []string, outputPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return fmt.Errorf("%w: pid %d writing %s", ErrAlreadyRunning, r.cmd.Process.Pid, r.outputPath)
	}

	cmd := exec.Command("ffmpeg", args...)
	var stderrBuf bytes.Buffer
	if r.verbose {
		cmd.Stderr = io.MultiWriter(&stderrBuf, os.Stderr)
	} else {
		cmd.Stderr = &stderrBuf
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("capture stdin pipe: %w", err)
	}

	r.log.Debug("capture command: ffmpeg %v", args)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: launch ffmpeg: %v", ErrBackendUnavailable, err)
	}

	// The waiter closes done after delivering the exit error, so any number
	// of observers (alive, halt, the early-exit check) can see the exit
	// without stealing it from each other.
	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
		close(done)
	}()

	// Early-exit check: a capture that dies this fast never recorded.
	select {
	case waitErr := <-done:
		stderr := stderrBuf.String()
		if ffmpeg.MatchBackendUnavailable(stderr) {
			return fmt.Errorf("%w: %s", ErrBackendUnavailable, ffmpeg.StderrTail(stderr, 3))
		}
		return &ffmpeg.EncodeError{Op: "capture", Stderr: stderr, Err: waitErr}
	case <-time.After(startupGrace):
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	}

	r.cmd = cmd
	r.stdin = stdin
	r.stderr = &stderrBuf
	r.done = done
	r.outputPath = outputPath
	r.log.Record("capture started: pid %d -> %s", cmd.Process.Pid, outputPath)
	return nil
}

// halt stops the capture process and verifies the artifact. The active
// process slot is cleared whether or not the artifact is usable, so a failed
// stop never wedges the backend.
func (r *runner) halt(ctx context.Context) (Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil {
		return Artifact{}, ErrNotRunning
	}
	cmd, stdin, done := r.cmd, r.stdin, r.done
	outputPath := r.outputPath
	defer func() {
		r.cmd = nil
		r.stdin = nil
		r.stderr = nil
		r.done = nil
		r.outputPath = ""
	}()

	// Graceful path: ffmpeg finalizes the container when told to quit over
	// stdin. Anything harsher risks a truncated moov atom.
	_, _ = io.WriteString(stdin, "q")
	_ = stdin.Close()

	exited := false
	select {
	case <-done:
		exited = true
	case <-time.After(r.stopTimeout):
		r.log.Warn("capture pid %d ignored quit, terminating", cmd.Process.Pid)
	case <-ctx.Done():
		r.log.Warn("stop cancelled, terminating capture pid %d", cmd.Process.Pid)
	}

	if !exited {
		_ = cmd.Process.Signal(os.Interrupt)
		select {
		case <-done:
		case <-time.After(termGrace):
			_ = cmd.Process.Kill()
			<-done
		}
	}
	r.log.Record("capture stopped: pid %d", cmd.Process.Pid)

	return verifyArtifact(ctx, outputPath)
}

// alive reports whether the capture process is still running. Reading from
// the closed done channel is a pure observation, so a later halt still sees
// the exit. gopsutil double-checks the pid is genuinely live and not a
// zombie.
func (r *runner) alive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
	}
	ok, err := process.PidExists(int32(r.cmd.Process.Pid))
	return err == nil && ok
}

// verifyArtifact checks that a finished recording is present, non-empty, and
// playable, and fills in its measured duration.
func verifyArtifact(ctx context.Context, path string) (Artifact, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %s missing", ErrIncompleteArtifact, path)
	}
	if fi.Size() == 0 {
		return Artifact{}, fmt.Errorf("%w: %s is empty", ErrIncompleteArtifact, path)
	}
	info, err := probe.Probe(ctx, path)
	if err != nil {
		if errors.Is(err, probe.ErrUnreadable) {
			return Artifact{}, fmt.Errorf("%w: %s not playable", ErrIncompleteArtifact, path)
		}
		return Artifact{}, err
	}
	return Artifact{Path: path, SizeBytes: fi.Size(), Duration: info.Duration}, nil
}
