// Package check provides system diagnostics (the check subcommand) and
// pre-serve dependency validation for ffmpeg, ffprobe, the capture facility,
// window tooling, and speech synthesis.
package check

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/demoreel/demoreel/internal/capture"
	"github.com/demoreel/demoreel/internal/config"
)

// Sentinel errors returned by CheckDeps when a required tool is missing.
var (
	ErrFfmpegNotFound  = errors.New("ffmpeg not found on PATH")
	ErrFfprobeNotFound = errors.New("ffprobe not found on PATH")
	ErrEncoderBroken   = errors.New("libx264 test encode failed")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}

// RunCheck runs the interactive check flow: prints availability of ffmpeg,
// ffprobe, the encoders, the platform capture facility, window tooling, and
// speech engines. Informational only, it does not stop on failure.
func RunCheck(cfg *config.Config, log Logger) {
	log.Info("=== System Check ===")

	checkFfmpeg(log)
	checkFfprobe(log)
	checkEncoders(log)
	checkCapture(cfg, log)
	checkWindowTools(log)
	checkSpeech(cfg, log)
}

// checkFfmpeg verifies ffmpeg is on PATH and logs its version string.
func checkFfmpeg(log Logger) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		log.Error("ffmpeg not found")
		return
	}
	cmd := exec.Command("ffmpeg", "-version")
	out, err := cmd.Output()
	if err != nil {
		log.Warn("ffmpeg found but -version failed: %v", err)
		return
	}
	log.Success("ffmpeg: %s", firstLine(string(out)))
}

func checkFfprobe(log Logger) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		log.Error("ffprobe not found")
		return
	}
	out, err := exec.Command("ffprobe", "-version").Output()
	if err != nil {
		log.Warn("ffprobe found but -version failed: %v", err)
		return
	}
	log.Success("ffprobe: %s", firstLine(string(out)))
}

// checkEncoders verifies the encoders every transform depends on.
func checkEncoders(log Logger) {
	log.Info("Testing libx264...")
	if runSilent("ffmpeg", x264TestArgs()...) {
		log.Success("libx264 works")
	} else {
		log.Error("libx264 test encode failed")
	}

	log.Info("Testing AAC encoder...")
	if runSilent("ffmpeg",
		"-hide_banner", "-nostdin",
		"-f", "lavfi", "-i", "sine=frequency=1000:duration=0.1",
		"-c:a", "aac", "-f", "null", "-",
	) {
		log.Success("AAC encoder works")
	} else {
		log.Error("AAC encoder test failed")
	}
}

// checkCapture reports which capture facility would be used and whether its
// platform prerequisites look present. Structural checks only: actually
// grabbing frames needs OS permissions no diagnostic can verify.
func checkCapture(cfg *config.Config, log Logger) {
	if capture.IsContainer() {
		log.Info("Container detected, virtual backend is the default")
	}
	switch runtime.GOOS {
	case "darwin":
		log.Info("Capture device: avfoundation (screen %d)", cfg.ScreenIndex)
		log.Info("Screen-recording permission must be granted in System Settings")
	case "linux":
		display := os.Getenv("DISPLAY")
		if display == "" {
			display = cfg.Display
			log.Warn("DISPLAY not set, virtual display %s would be used", display)
		}
		if display == "" {
			log.Error("no display available for x11grab")
			return
		}
		log.Success("Capture device: x11grab on %s", display)
	case "windows":
		log.Success("Capture device: gdigrab")
	default:
		log.Error("no capture support on %s", runtime.GOOS)
	}
}

// checkWindowTools reports availability of the window enumeration tooling.
func checkWindowTools(log Logger) {
	var tools []string
	switch runtime.GOOS {
	case "linux":
		tools = []string{"wmctrl", "xrandr"}
	case "darwin":
		tools = []string{"osascript"}
	case "windows":
		tools = []string{"powershell"}
	}
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			log.Warn("%s not found, window targeting unavailable", tool)
		} else {
			log.Success("%s found", tool)
		}
	}
}

// checkSpeech reports which narration engine would be selected.
func checkSpeech(cfg *config.Config, log Logger) {
	if cfg.OpenAIKey != "" {
		log.Success("OpenAI speech API configured (voice %s)", cfg.TTSVoice)
		return
	}
	for _, tool := range localSpeechTools() {
		if _, err := exec.LookPath(tool); err == nil {
			log.Success("local speech engine: %s", tool)
			return
		}
	}
	log.Warn("no speech engine available: set an OpenAI API key or install espeak-ng")
}

func localSpeechTools() []string {
	if runtime.GOOS == "darwin" {
		return []string{"say", "espeak-ng", "espeak"}
	}
	return []string{"espeak-ng", "espeak"}
}

// CheckDeps is the pre-serve validation: ffmpeg and ffprobe must be on PATH
// and libx264 must produce output. Capture and speech problems surface
// per-request instead, since a server with a missing speech engine can still
// record.
func CheckDeps(cfg *config.Config) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return ErrFfmpegNotFound
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return ErrFfprobeNotFound
	}
	if !runSilent("ffmpeg", x264TestArgs()...) {
		return ErrEncoderBroken
	}
	return nil
}

// --- internal helpers ---

// x264TestArgs returns the ffmpeg arguments for a minimal libx264 test
// encode. Shared by checkEncoders and CheckDeps.
func x264TestArgs() []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=black:s=256x256:d=0.1",
		"-c:v", "libx264",
		"-f", "null", "-",
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx > 0 {
		s = s[:idx]
	}
	return s
}

// runSilent runs a command and returns true if it exits with status 0.
// Both stdout and stderr are discarded.
func runSilent(name string, args ...string) bool {
	cmd := exec.Command(name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}
