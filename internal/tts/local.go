package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/demoreel/demoreel/internal/ffmpeg"
)

// synthesizeLocal renders text with the platform synthesizer into a raw
// intermediate (aiff from say, wav from espeak-ng), then transcodes to the
// requested output container with ffmpeg.
func synthesizeLocal(ctx context.Context, text, outputPath string, verbose bool) error {
	tool, args, ext, err := localCommand(text)
	if err != nil {
		return err
	}

	raw, err := os.CreateTemp("", "demoreel-tts-*"+ext)
	if err != nil {
		return err
	}
	raw.Close()
	defer os.Remove(raw.Name())

	args = append(args, raw.Name())
	cmd := exec.CommandContext(ctx, tool, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %v: %s", tool, err, strings.TrimSpace(string(out)))
	}

	return ffmpeg.Run(ctx, "tts", ffmpeg.TranscodeArgs(raw.Name(), outputPath), verbose)
}

// localCommand picks the synthesizer binary and its arguments, minus the
// output path which the caller appends.
func localCommand(text string) (tool string, args []string, ext string, err error) {
	if runtime.GOOS == "darwin" {
		if _, err := exec.LookPath("say"); err == nil {
			return "say", []string{text, "-o"}, ".aiff", nil
		}
	}
	if _, err := exec.LookPath("espeak-ng"); err == nil {
		return "espeak-ng", []string{text, "-w"}, ".wav", nil
	}
	if _, err := exec.LookPath("espeak"); err == nil {
		return "espeak", []string{text, "-w"}, ".wav", nil
	}
	return "", nil, "", fmt.Errorf("%w: install espeak-ng or set an OpenAI API key", ErrEngineMissing)
}
