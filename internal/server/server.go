// Package server speaks the line-delimited JSON tool protocol over a byte
// stream, normally stdin/stdout. Each request line is dispatched to a
// toolbox method on its own goroutine; responses are serialized by a write
// mutex so concurrent tools never interleave lines.
package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/demoreel/demoreel/internal/logging"
	"github.com/demoreel/demoreel/internal/tools"
)

// maxLineBytes bounds a single request line. Narration text is the largest
// payload and fits comfortably.
const maxLineBytes = 4 * 1024 * 1024

// Request is one tool invocation.
type Request struct {
	ID     string          `json:"id"`
	Tool   string          `json:"tool"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers one request. Exactly one of Result and Error is set.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo carries a stable machine code plus a human message.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Serve reads requests from r until EOF or ctx cancellation, answering on w.
// Returns nil on clean EOF.
func Serve(ctx context.Context, tb *tools.Toolbox, log *logging.Logger, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var writeMu sync.Mutex
	var wg sync.WaitGroup
	defer wg.Wait()

	respond := func(resp Response) {
		data, err := json.Marshal(resp)
		if err != nil {
			log.Error("marshal response %s: %v", resp.ID, err)
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		_, _ = w.Write(append(data, '\n'))
	}

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			respond(Response{Error: &ErrorInfo{Code: CodeInvalidParams, Message: "malformed request: " + err.Error()}})
			continue
		}

		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			result, err := dispatch(ctx, tb, req)
			if err != nil {
				log.Error("%s: %v", req.Tool, err)
				respond(Response{ID: req.ID, Error: &ErrorInfo{Code: ErrorCode(err), Message: err.Error()}})
				return
			}
			respond(Response{ID: req.ID, Result: result})
		}(req)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

// dispatch routes a request to its toolbox method.
func dispatch(ctx context.Context, tb *tools.Toolbox, req Request) (interface{}, error) {
	switch req.Tool {
	case "start_recording":
		var p tools.StartRecordingRequest
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return tb.StartRecording(ctx, p)
	case "stop_recording":
		return tb.StopRecording(ctx)
	case "recording_status":
		return tb.RecordingStatus(ctx)
	case "text_to_speech":
		var p tools.TextToSpeechRequest
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return tb.TextToSpeech(ctx, p)
	case "adjust_video_to_audio":
		var p tools.AdjustVideoToAudioRequest
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return tb.AdjustVideoToAudio(ctx, p)
	case "concatenate_videos":
		var p tools.ConcatenateVideosRequest
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return tb.ConcatenateVideos(ctx, p)
	case "merge_audio_tracks":
		var p tools.MergeAudioTracksRequest
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return tb.MergeAudioTracks(ctx, p)
	case "trim_video":
		var p tools.TrimVideoRequest
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return tb.TrimVideo(ctx, p)
	case "get_media_info":
		var p tools.MediaInfoRequest
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return tb.MediaInfo(ctx, p)
	case "list_media":
		return tb.ListMedia(ctx)
	case "list_windows":
		return tb.ListWindows(ctx)
	case "list_screens":
		return tb.ListScreens(ctx)
	default:
		return nil, &paramError{msg: fmt.Sprintf("unknown tool %q", req.Tool)}
	}
}

func decodeParams(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &paramError{msg: "invalid params: " + err.Error()}
	}
	return nil
}

// paramError marks request decoding failures so they map to
// CodeInvalidParams.
type paramError struct{ msg string }

func (e *paramError) Error() string { return e.msg }
