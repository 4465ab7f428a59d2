package server

import (
	"errors"

	"github.com/demoreel/demoreel/internal/avsync"
	"github.com/demoreel/demoreel/internal/capture"
	"github.com/demoreel/demoreel/internal/ffmpeg"
	"github.com/demoreel/demoreel/internal/probe"
	"github.com/demoreel/demoreel/internal/session"
	"github.com/demoreel/demoreel/internal/timeline"
	"github.com/demoreel/demoreel/internal/tts"
	"github.com/demoreel/demoreel/internal/winmgr"
)

// Stable error codes on the wire. Callers branch on these, never on message
// text.
const (
	CodeAlreadyRecording   = "ALREADY_RECORDING"
	CodeNoActiveRecording  = "NO_ACTIVE_RECORDING"
	CodeNotFound           = "NOT_FOUND"
	CodeUnreadableMedia    = "UNREADABLE_MEDIA"
	CodeWindowNotFound     = "WINDOW_NOT_FOUND"
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeAlreadyRunning     = "ALREADY_RUNNING"
	CodeIncompleteArtifact = "INCOMPLETE_ARTIFACT"
	CodeEncodeError        = "ENCODE_ERROR"
	CodeInvalidRange       = "INVALID_RANGE"
	CodeEmptySequence      = "EMPTY_SEQUENCE"
	CodeMediaMismatch      = "MEDIA_MISMATCH"
	CodeToolMissing        = "TOOL_MISSING"
	CodeInvalidParams      = "INVALID_PARAMS"
	CodeInternal           = "INTERNAL"
)

// ErrorCode maps a toolbox error to its wire code via the sentinel it wraps.
func ErrorCode(err error) string {
	var encErr *ffmpeg.EncodeError
	var paramErr *paramError

	switch {
	case errors.Is(err, session.ErrAlreadyRecording):
		return CodeAlreadyRecording
	case errors.Is(err, session.ErrNoActiveRecording):
		return CodeNoActiveRecording
	case errors.Is(err, probe.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, probe.ErrUnreadable):
		return CodeUnreadableMedia
	case errors.Is(err, capture.ErrWindowNotFound), errors.Is(err, winmgr.ErrWindowNotFound):
		return CodeWindowNotFound
	case errors.Is(err, capture.ErrBackendUnavailable):
		return CodeBackendUnavailable
	case errors.Is(err, capture.ErrAlreadyRunning):
		return CodeAlreadyRunning
	case errors.Is(err, capture.ErrNotRunning):
		return CodeNoActiveRecording
	case errors.Is(err, capture.ErrIncompleteArtifact):
		return CodeIncompleteArtifact
	case errors.Is(err, timeline.ErrInvalidRange), errors.Is(err, avsync.ErrInvalidDuration):
		return CodeInvalidRange
	case errors.Is(err, timeline.ErrEmptySequence):
		return CodeEmptySequence
	case errors.Is(err, timeline.ErrMediaMismatch):
		return CodeMediaMismatch
	case errors.Is(err, winmgr.ErrToolMissing), errors.Is(err, winmgr.ErrUnsupported), errors.Is(err, tts.ErrEngineMissing):
		return CodeToolMissing
	case errors.Is(err, tts.ErrEmptyText), errors.Is(err, tts.ErrUnknownEngine), errors.Is(err, tts.ErrNoAPIKey):
		return CodeInvalidParams
	case errors.As(err, &encErr):
		return CodeEncodeError
	case errors.As(err, &paramErr):
		return CodeInvalidParams
	default:
		return CodeInternal
	}
}
