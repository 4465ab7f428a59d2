package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/demoreel/demoreel/internal/avsync"
	"github.com/demoreel/demoreel/internal/capture"
	"github.com/demoreel/demoreel/internal/config"
	"github.com/demoreel/demoreel/internal/ffmpeg"
	"github.com/demoreel/demoreel/internal/logging"
	"github.com/demoreel/demoreel/internal/probe"
	"github.com/demoreel/demoreel/internal/session"
	"github.com/demoreel/demoreel/internal/timeline"
	"github.com/demoreel/demoreel/internal/tools"
	"github.com/demoreel/demoreel/internal/tts"
	"github.com/demoreel/demoreel/internal/winmgr"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"already recording", session.ErrAlreadyRecording, CodeAlreadyRecording},
		{"no active recording", session.ErrNoActiveRecording, CodeNoActiveRecording},
		{"wrapped sentinel", fmt.Errorf("start: %w", session.ErrAlreadyRecording), CodeAlreadyRecording},
		{"media not found", probe.ErrNotFound, CodeNotFound},
		{"unreadable media", probe.ErrUnreadable, CodeUnreadableMedia},
		{"window not found", capture.ErrWindowNotFound, CodeWindowNotFound},
		{"winmgr window not found", winmgr.ErrWindowNotFound, CodeWindowNotFound},
		{"backend unavailable", capture.ErrBackendUnavailable, CodeBackendUnavailable},
		{"capture already running", capture.ErrAlreadyRunning, CodeAlreadyRunning},
		{"capture not running", capture.ErrNotRunning, CodeNoActiveRecording},
		{"incomplete artifact", capture.ErrIncompleteArtifact, CodeIncompleteArtifact},
		{"invalid range", timeline.ErrInvalidRange, CodeInvalidRange},
		{"invalid duration", avsync.ErrInvalidDuration, CodeInvalidRange},
		{"empty sequence", timeline.ErrEmptySequence, CodeEmptySequence},
		{"media mismatch", timeline.ErrMediaMismatch, CodeMediaMismatch},
		{"window tool missing", winmgr.ErrToolMissing, CodeToolMissing},
		{"speech engine missing", tts.ErrEngineMissing, CodeToolMissing},
		{"empty narration", tts.ErrEmptyText, CodeInvalidParams},
		{"openai without key", tts.ErrNoAPIKey, CodeInvalidParams},
		{"encode failure", &ffmpeg.EncodeError{Op: "sync", Err: errors.New("exit status 1")}, CodeEncodeError},
		{"wrapped encode failure", fmt.Errorf("apply: %w", &ffmpeg.EncodeError{Op: "sync", Err: errors.New("x")}), CodeEncodeError},
		{"unknown error", errors.New("surprise"), CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ErrorCode(tt.err)
			if got != tt.want {
				t.Errorf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func newTestToolbox(t *testing.T) (*tools.Toolbox, *logging.Logger) {
	t.Helper()
	cfg := config.Default()
	cfg.RecordingsDir = t.TempDir()
	cfg.CaptureBackend = config.BackendVirtual
	cfg.ColorMode = config.ColorNever

	log, err := logging.NewLogger(cfg)
	if err != nil {
		t.Fatal(err)
	}
	tb, err := tools.New(cfg, log)
	if err != nil {
		t.Fatal(err)
	}
	return tb, log
}

// serveLines runs Serve over the given request lines and returns the decoded
// responses keyed by id.
func serveLines(t *testing.T, lines ...string) map[string]Response {
	t.Helper()
	tb, log := newTestToolbox(t)
	defer log.Close()

	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer
	if err := Serve(context.Background(), tb, log, in, &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	responses := make(map[string]Response)
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var resp Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("bad response line %q: %v", scanner.Text(), err)
		}
		responses[resp.ID] = resp
	}
	return responses
}

func TestServe_RecordingStatus(t *testing.T) {
	responses := serveLines(t, `{"id":"1","tool":"recording_status"}`)

	resp, ok := responses["1"]
	if !ok {
		t.Fatalf("no response with id 1: %v", responses)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result type %T", resp.Result)
	}
	if result["state"] != "idle" {
		t.Errorf("state = %v, want idle", result["state"])
	}
}

func TestServe_UnknownTool(t *testing.T) {
	responses := serveLines(t, `{"id":"9","tool":"explode"}`)

	resp := responses["9"]
	if resp.Error == nil {
		t.Fatal("expected an error response")
	}
	if resp.Error.Code != CodeInvalidParams {
		t.Errorf("code = %q, want %q", resp.Error.Code, CodeInvalidParams)
	}
}

func TestServe_MalformedRequest(t *testing.T) {
	responses := serveLines(t, `this is not json`)

	resp, ok := responses[""]
	if !ok {
		t.Fatalf("no error response: %v", responses)
	}
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("error = %+v, want %s", resp.Error, CodeInvalidParams)
	}
}

func TestServe_UnknownParamsRejected(t *testing.T) {
	responses := serveLines(t, `{"id":"2","tool":"trim_video","params":{"video_path":"v.mp4","output_path":"o.mp4","bogus_field":1}}`)

	resp := responses["2"]
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("error = %+v, want %s", resp.Error, CodeInvalidParams)
	}
}

func TestServe_StopWhileIdle(t *testing.T) {
	responses := serveLines(t, `{"id":"3","tool":"stop_recording"}`)

	resp := responses["3"]
	if resp.Error == nil {
		t.Fatal("expected an error response")
	}
	if resp.Error.Code != CodeNoActiveRecording {
		t.Errorf("code = %q, want %q", resp.Error.Code, CodeNoActiveRecording)
	}
}

func TestServe_MediaInfoMissingFile(t *testing.T) {
	responses := serveLines(t, `{"id":"4","tool":"get_media_info","params":{"path":"nope.mp4"}}`)

	resp := responses["4"]
	if resp.Error == nil || resp.Error.Code != CodeNotFound {
		t.Errorf("error = %+v, want %s", resp.Error, CodeNotFound)
	}
}

func TestServe_ListMediaEmptyDir(t *testing.T) {
	responses := serveLines(t, `{"id":"5","tool":"list_media"}`)

	resp := responses["5"]
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result := resp.Result.(map[string]interface{})
	files, ok := result["files"].([]interface{})
	if !ok || len(files) != 0 {
		t.Errorf("files = %v, want empty list", result["files"])
	}
}
