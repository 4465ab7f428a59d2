package ffmpeg

import (
	"fmt"
	"strconv"
)

// Common preamble for every transform: overwrite output, no interactive
// stdin, quiet unless something goes wrong.
func preamble() []string {
	return []string{"-y", "-hide_banner", "-nostdin", "-loglevel", "error"}
}

// SyncArgs constructs the argument slice for speed-matching a video to a
// target duration. setpts=PTS/factor uniformly rescales presentation
// timestamps: every frame is preserved, only playback rate changes.
//
// With mergeAudio the given audio becomes the sole audio track of the output
// (mapped at its native rate, so no pitch correction is needed) and -shortest
// bounds the container to the adjusted streams. Without it the output is
// video-only.
func SyncArgs(videoPath, audioPath string, speedFactor float64, mergeAudio bool, outputPath string) []string {
	args := preamble()
	factor := formatFactor(speedFactor)

	// --- Inputs ---
	args = append(args, "-i", videoPath)
	if mergeAudio {
		args = append(args, "-i", audioPath)
	}

	// --- Filter and stream maps ---
	if mergeAudio {
		args = append(args,
			"-filter_complex", "[0:v]setpts=PTS/"+factor+"[v]",
			"-map", "[v]",
			"-map", "1:a",
		)
	} else {
		args = append(args,
			"-vf", "setpts=PTS/"+factor,
			"-an",
		)
	}

	// --- Codecs ---
	args = append(args,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
	)
	if mergeAudio {
		args = append(args, "-c:a", "aac", "-shortest")
	}

	// --- Output ---
	return append(args, outputPath)
}

// ConcatArgs constructs the argument slice for stream-copy concatenation via
// the concat demuxer. listFile is a text file of `file '<path>'` lines.
func ConcatArgs(listFile, outputPath string) []string {
	args := preamble()
	return append(args,
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outputPath,
	)
}

// MergeTracksArgs constructs the argument slice for overlaying audio tracks
// onto a video. Each track is delayed to its offset with adelay and all
// tracks are additively mixed with amix; overlapping tracks sum rather than
// replace. With keepOriginal the video's own audio joins the mix, otherwise
// it is discarded. The video stream is copied untouched.
//
// trackPaths and offsetsSeconds are parallel slices.
func MergeTracksArgs(videoPath string, trackPaths []string, offsetsSeconds []float64, keepOriginal bool, outputPath string) []string {
	args := preamble()

	// --- Inputs: video first, then each track ---
	args = append(args, "-i", videoPath)
	for _, p := range trackPaths {
		args = append(args, "-i", p)
	}

	// --- Filter graph: adelay each track, then amix everything ---
	var graph string
	var mixInputs string
	if keepOriginal {
		mixInputs = "[0:a]"
	}
	for i := range trackPaths {
		delayMs := int(offsetsSeconds[i] * 1000)
		label := fmt.Sprintf("a%d", i)
		graph += fmt.Sprintf("[%d:a]adelay=%d|%d[%s];", i+1, delayMs, delayMs, label)
		mixInputs += "[" + label + "]"
	}
	n := len(trackPaths)
	if keepOriginal {
		n++
	}
	graph += fmt.Sprintf("%samix=inputs=%d:duration=first[aout]", mixInputs, n)

	args = append(args,
		"-filter_complex", graph,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
	)

	// --- Output ---
	return append(args, outputPath)
}

// TrimArgs constructs the argument slice for a stream-copy trim. When
// endTime > 0 it takes precedence over duration; when both are zero the trim
// runs to the end of the input.
func TrimArgs(videoPath, outputPath string, startTime, endTime, duration float64) []string {
	args := preamble()
	args = append(args,
		"-i", videoPath,
		"-ss", formatSeconds(startTime),
	)
	if endTime > 0 {
		args = append(args, "-to", formatSeconds(endTime))
	} else if duration > 0 {
		args = append(args, "-t", formatSeconds(duration))
	}
	return append(args, "-c", "copy", outputPath)
}

// TranscodeArgs constructs the argument slice for a plain container/codec
// conversion (used by the local TTS engine to turn wav/aiff into the
// requested output format).
func TranscodeArgs(inputPath, outputPath string) []string {
	args := preamble()
	return append(args, "-i", inputPath, outputPath)
}

// formatFactor renders a speed factor with full float precision so sync math
// survives the round trip through the command line.
func formatFactor(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
