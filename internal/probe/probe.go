// Package probe provides ffprobe-based media inspection. A single JSON call
// per file yields duration, resolution, codecs, and audio layout. Results are
// derived from the file at call time and never cached: files in the
// recordings directory change between calls.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Sentinel errors for probing failures.
var (
	// ErrNotFound means the path does not exist.
	ErrNotFound = errors.New("media file not found")
	// ErrUnreadable means ffprobe could not parse the file (corrupt, wrong
	// format, or zero-byte).
	ErrUnreadable = errors.New("unreadable media file")
)

// MediaInfo describes one media file. Video fields are zero when the file has
// no video stream; audio fields are zero when it has no audio stream.
// Duration carries ffprobe's full float precision; sync math must use it
// directly, never a rounded display string.
type MediaInfo struct {
	Path       string
	Duration   float64 // Seconds, millisecond precision or better.
	SizeBytes  int64
	Width      int
	Height     int
	VideoCodec string
	FrameRate  string // ffprobe rational, e.g. "30/1".
	AudioCodec string
	SampleRate int
	Channels   int
}

// HasVideo reports whether a video stream was found.
func (m *MediaInfo) HasVideo() bool { return m.VideoCodec != "" }

// HasAudio reports whether an audio stream was found.
func (m *MediaInfo) HasAudio() bool { return m.AudioCodec != "" }

// Resolution returns "WxH" for the video stream, or "unknown".
func (m *MediaInfo) Resolution() string {
	if m.Width <= 0 || m.Height <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// Probe runs a single ffprobe JSON call against path and returns the parsed
// result. Returns [ErrNotFound] when the path does not exist and
// [ErrUnreadable] (wrapping ffprobe's diagnostic) when the file cannot be
// parsed as media.
func Probe(ctx context.Context, path string) (*MediaInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if fi.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrUnreadable, path)
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		detail := ""
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("%w: ffprobe %q: %s", ErrUnreadable, path, detail)
	}

	info, err := ParseJSON(out)
	if err != nil {
		return nil, err
	}
	info.Path = path
	info.SizeBytes = fi.Size()
	return info, nil
}

// ParseJSON converts raw ffprobe JSON output into a MediaInfo. Exported for
// testing without a real ffprobe binary. Path and SizeBytes are filled in by
// [Probe]; SizeBytes falls back to ffprobe's format size here.
func ParseJSON(data []byte) (*MediaInfo, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse ffprobe JSON: %v", ErrUnreadable, err)
	}
	info := buildInfo(&raw)
	if info.Duration <= 0 && !info.HasVideo() && !info.HasAudio() {
		return nil, fmt.Errorf("%w: no streams or duration reported", ErrUnreadable)
	}
	return info, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
}

type ffprobeStream struct {
	CodecName    string         `json:"codec_name"`
	CodecType    string         `json:"codec_type"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	AvgFrameRate string         `json:"avg_frame_rate"`
	RFrameRate   string         `json:"r_frame_rate"`
	Channels     int            `json:"channels"`
	SampleRate   string         `json:"sample_rate"`
	Disposition  map[string]int `json:"disposition"`
}

// --- Conversion from wire types to the domain type ---

func buildInfo(raw *ffprobeOutput) *MediaInfo {
	info := &MediaInfo{
		Duration:  parseFloat(raw.Format.Duration),
		SizeBytes: parseInt64(raw.Format.Size),
	}

	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			// Skip cover-art streams; the first real video stream wins.
			if s.Disposition["attached_pic"] == 1 || info.VideoCodec != "" {
				continue
			}
			info.VideoCodec = s.CodecName
			info.Width = s.Width
			info.Height = s.Height
			info.FrameRate = s.RFrameRate
			if info.FrameRate == "" {
				info.FrameRate = s.AvgFrameRate
			}
		case "audio":
			if info.AudioCodec != "" {
				continue
			}
			info.AudioCodec = s.CodecName
			info.Channels = s.Channels
			info.SampleRate = parseInt(s.SampleRate)
		}
	}
	return info
}

// --- Numeric parsing helpers (ffprobe returns numbers as strings) ---

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
