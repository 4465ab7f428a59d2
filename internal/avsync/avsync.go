// Package avsync speed-matches a screen recording to a narration track. The
// whole engine rests on one ratio: factor = video duration / audio duration.
// setpts then rescales every frame's timestamp by that factor, so the video
// lands on the narration's length without dropping or duplicating frames.
package avsync

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/demoreel/demoreel/internal/ffmpeg"
	"github.com/demoreel/demoreel/internal/probe"
)

// DurationEpsilon is the tolerance, in seconds, inside which the two
// durations count as already matched.
const DurationEpsilon = 0.01

// Factors outside this range produce visibly unnatural motion. The plan
// still runs, but carries a warning.
const (
	MinSafeFactor = 0.25
	MaxSafeFactor = 4.0
)

// ErrInvalidDuration means a probed duration was zero or negative, leaving
// no defined speed factor.
var ErrInvalidDuration = errors.New("invalid media duration for sync")

// Action is the direction of the speed adjustment.
type Action string

const (
	ActionSpeedUp  Action = "speed_up"
	ActionSlowDown Action = "slow_down"
	ActionNoChange Action = "no_change"
)

// Plan is a computed adjustment, decided before any encoding happens.
type Plan struct {
	VideoDuration float64
	AudioDuration float64
	SpeedFactor   float64
	Action        Action
	Warning       string
}

// Result is a completed adjustment.
type Result struct {
	Plan
	OutputPath     string
	OutputDuration float64
	SizeBytes      int64
}

// ComputePlan decides the speed adjustment for the given media. Pure
// function of the two durations.
func ComputePlan(video, audio *probe.MediaInfo) (Plan, error) {
	if video.Duration <= 0 {
		return Plan{}, fmt.Errorf("%w: video %s reports %.3fs", ErrInvalidDuration, video.Path, video.Duration)
	}
	if audio.Duration <= 0 {
		return Plan{}, fmt.Errorf("%w: audio %s reports %.3fs", ErrInvalidDuration, audio.Path, audio.Duration)
	}

	plan := Plan{
		VideoDuration: video.Duration,
		AudioDuration: audio.Duration,
		SpeedFactor:   video.Duration / audio.Duration,
	}

	diff := video.Duration - audio.Duration
	switch {
	case diff > DurationEpsilon:
		plan.Action = ActionSpeedUp
	case diff < -DurationEpsilon:
		plan.Action = ActionSlowDown
	default:
		plan.Action = ActionNoChange
	}

	if plan.SpeedFactor > MaxSafeFactor {
		plan.Warning = fmt.Sprintf("speed factor %.2fx exceeds %.2fx; motion may look unnatural", plan.SpeedFactor, MaxSafeFactor)
	} else if plan.SpeedFactor < MinSafeFactor {
		plan.Warning = fmt.Sprintf("speed factor %.2fx is below %.2fx; motion may look unnatural", plan.SpeedFactor, MinSafeFactor)
	}
	return plan, nil
}

// PlanFiles probes both files and computes the plan.
func PlanFiles(ctx context.Context, videoPath, audioPath string) (Plan, error) {
	video, err := probe.Probe(ctx, videoPath)
	if err != nil {
		return Plan{}, err
	}
	audio, err := probe.Probe(ctx, audioPath)
	if err != nil {
		return Plan{}, err
	}
	return ComputePlan(video, audio)
}

// Apply executes a plan. With mergeAudio the narration becomes the output's
// audio track at its native rate, so no pitch handling is needed; without it
// the output is silent video. A no-change plan still encodes, with factor
// 1.0, so the caller always gets a fresh artifact at outputPath.
func Apply(ctx context.Context, plan Plan, videoPath, audioPath, outputPath string, mergeAudio bool, verbose bool) (Result, error) {
	args := ffmpeg.SyncArgs(videoPath, audioPath, plan.SpeedFactor, mergeAudio, outputPath)
	if err := ffmpeg.Run(ctx, "sync", args, verbose); err != nil {
		return Result{}, err
	}

	out, err := probe.Probe(ctx, outputPath)
	if err != nil {
		return Result{}, err
	}
	fi, err := os.Stat(outputPath)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Plan:           plan,
		OutputPath:     outputPath,
		OutputDuration: out.Duration,
		SizeBytes:      fi.Size(),
	}, nil
}
