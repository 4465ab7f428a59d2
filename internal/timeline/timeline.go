// Package timeline assembles finished media: concatenating segments,
// overlaying narration tracks at offsets, and trimming. Everything here is
// stream-copy where possible; only audio mixing re-encodes.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/demoreel/demoreel/internal/ffmpeg"
	"github.com/demoreel/demoreel/internal/probe"
)

// Sentinel errors for assembly validation.
var (
	// ErrEmptySequence means no input segments or tracks were given.
	ErrEmptySequence = errors.New("empty input sequence")
	// ErrMediaMismatch means segments differ in codec or resolution, which
	// stream-copy concatenation cannot reconcile.
	ErrMediaMismatch = errors.New("segments have mismatched codec or resolution")
	// ErrInvalidRange means a trim or offset range is out of order or
	// negative.
	ErrInvalidRange = errors.New("invalid time range")
)

// Artifact describes an assembled output file.
type Artifact struct {
	Path      string
	SizeBytes int64
	Duration  float64
}

// TrackPlacement positions one audio file on the video's timeline.
type TrackPlacement struct {
	Path      string
	StartTime float64 // Seconds from the start of the video.
}

// Concatenate joins segments in order into outputPath without re-encoding.
// All segments must share a video codec and resolution; a mismatch fails
// with [ErrMediaMismatch] before any work happens, since stream-copy concat
// would silently produce a broken file.
func Concatenate(ctx context.Context, segments []string, outputPath string, verbose bool) (Artifact, error) {
	if len(segments) == 0 {
		return Artifact{}, fmt.Errorf("%w: no segments to concatenate", ErrEmptySequence)
	}

	var first *probe.MediaInfo
	for _, seg := range segments {
		info, err := probe.Probe(ctx, seg)
		if err != nil {
			return Artifact{}, err
		}
		if !info.HasVideo() {
			return Artifact{}, fmt.Errorf("%w: %s has no video stream", ErrMediaMismatch, seg)
		}
		if first == nil {
			first = info
			continue
		}
		if info.VideoCodec != first.VideoCodec || info.Width != first.Width || info.Height != first.Height {
			return Artifact{}, fmt.Errorf("%w: %s is %s %s, %s is %s %s",
				ErrMediaMismatch,
				first.Path, first.VideoCodec, first.Resolution(),
				seg, info.VideoCodec, info.Resolution())
		}
	}

	listFile, err := writeConcatList(segments)
	if err != nil {
		return Artifact{}, err
	}
	defer os.Remove(listFile)

	if err := ffmpeg.Run(ctx, "concat", ffmpeg.ConcatArgs(listFile, outputPath), verbose); err != nil {
		return Artifact{}, err
	}
	return measure(ctx, outputPath)
}

// writeConcatList writes the concat demuxer's list file: one
// `file '<abs path>'` line per segment, single quotes escaped the way the
// demuxer expects.
func writeConcatList(segments []string) (string, error) {
	f, err := os.CreateTemp("", "demoreel-concat-*.txt")
	if err != nil {
		return "", err
	}
	defer f.Close()

	for _, seg := range segments {
		abs, err := filepath.Abs(seg)
		if err != nil {
			os.Remove(f.Name())
			return "", err
		}
		line := "file '" + strings.ReplaceAll(abs, "'", `'\''`) + "'\n"
		if _, err := f.WriteString(line); err != nil {
			os.Remove(f.Name())
			return "", err
		}
	}
	return f.Name(), nil
}

// MergeAudioTracks overlays the given tracks onto the video at their
// offsets. Overlapping tracks are mixed additively; with keepOriginal the
// video's own audio joins the mix. The video stream is copied untouched.
func MergeAudioTracks(ctx context.Context, videoPath string, tracks []TrackPlacement, outputPath string, keepOriginal bool, verbose bool) (Artifact, error) {
	if len(tracks) == 0 {
		return Artifact{}, fmt.Errorf("%w: no audio tracks to merge", ErrEmptySequence)
	}

	video, err := probe.Probe(ctx, videoPath)
	if err != nil {
		return Artifact{}, err
	}
	if keepOriginal && !video.HasAudio() {
		return Artifact{}, fmt.Errorf("%w: %s has no audio track to keep", ErrMediaMismatch, videoPath)
	}

	paths := make([]string, len(tracks))
	offsets := make([]float64, len(tracks))
	for i, t := range tracks {
		if t.StartTime < 0 {
			return Artifact{}, fmt.Errorf("%w: track %s has negative start %.3f", ErrInvalidRange, t.Path, t.StartTime)
		}
		info, err := probe.Probe(ctx, t.Path)
		if err != nil {
			return Artifact{}, err
		}
		if !info.HasAudio() {
			return Artifact{}, fmt.Errorf("%w: %s has no audio stream", ErrMediaMismatch, t.Path)
		}
		paths[i] = t.Path
		offsets[i] = t.StartTime
	}

	args := ffmpeg.MergeTracksArgs(videoPath, paths, offsets, keepOriginal, outputPath)
	if err := ffmpeg.Run(ctx, "merge", args, verbose); err != nil {
		return Artifact{}, err
	}
	return measure(ctx, outputPath)
}

// Trim extracts a range of videoPath into outputPath by stream copy. endTime
// takes precedence over duration when both are set; both zero means trim to
// the end of the input.
func Trim(ctx context.Context, videoPath, outputPath string, startTime, endTime, duration float64, verbose bool) (Artifact, error) {
	if startTime < 0 {
		return Artifact{}, fmt.Errorf("%w: negative start %.3f", ErrInvalidRange, startTime)
	}
	if endTime < 0 || duration < 0 {
		return Artifact{}, fmt.Errorf("%w: negative end or duration", ErrInvalidRange)
	}
	if endTime > 0 && endTime <= startTime {
		return Artifact{}, fmt.Errorf("%w: end %.3f is not after start %.3f", ErrInvalidRange, endTime, startTime)
	}

	info, err := probe.Probe(ctx, videoPath)
	if err != nil {
		return Artifact{}, err
	}
	if startTime >= info.Duration {
		return Artifact{}, fmt.Errorf("%w: start %.3f is past the end of %.3fs input", ErrInvalidRange, startTime, info.Duration)
	}

	args := ffmpeg.TrimArgs(videoPath, outputPath, startTime, endTime, duration)
	if err := ffmpeg.Run(ctx, "trim", args, verbose); err != nil {
		return Artifact{}, err
	}
	return measure(ctx, outputPath)
}

func measure(ctx context.Context, path string) (Artifact, error) {
	info, err := probe.Probe(ctx, path)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Path: path, SizeBytes: info.SizeBytes, Duration: info.Duration}, nil
}
