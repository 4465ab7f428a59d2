// Package ffmpeg builds and runs ffmpeg command lines for the media
// transforms: speed adjustment, concatenation, audio overlay, and trimming.
// Capture command lines live in the capture package since they are
// platform-specific.
package ffmpeg

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
)

// ExecResult holds the outcome of a single ffmpeg invocation.
type ExecResult struct {
	Stderr string
	Err    error
}

// Execute runs ffmpeg with the given arguments (the leading "ffmpeg" is
// supplied here). When verbose is set, stderr is tee'd to os.Stderr in real
// time; otherwise it is captured silently for error classification.
func Execute(ctx context.Context, args []string, verbose bool) ExecResult {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stderrBuf bytes.Buffer
	if verbose {
		cmd.Stderr = io.MultiWriter(&stderrBuf, os.Stderr)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	return ExecResult{
		Stderr: stderrBuf.String(),
		Err:    err,
	}
}

// Run executes ffmpeg and converts a failure into an *EncodeError carrying
// the stderr tail. op names the transform for diagnostics (e.g. "sync",
// "concat").
func Run(ctx context.Context, op string, args []string, verbose bool) error {
	res := Execute(ctx, args, verbose)
	if res.Err == nil {
		return nil
	}
	return &EncodeError{Op: op, Stderr: res.Stderr, Err: res.Err}
}
