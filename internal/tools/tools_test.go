package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/demoreel/demoreel/internal/config"
	"github.com/demoreel/demoreel/internal/logging"
)

func newTestToolbox(t *testing.T) *Toolbox {
	t.Helper()
	cfg := config.Default()
	cfg.RecordingsDir = t.TempDir()
	cfg.CaptureBackend = config.BackendVirtual
	cfg.ColorMode = config.ColorNever

	log, err := logging.NewLogger(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close() })

	tb, err := New(cfg, log)
	if err != nil {
		t.Fatal(err)
	}
	return tb
}

func TestResolvePath(t *testing.T) {
	tb := newTestToolbox(t)

	rel := tb.resolvePath("demo.mp4")
	if rel != filepath.Join(tb.cfg.RecordingsDir, "demo.mp4") {
		t.Errorf("relative path = %q, want it under the recordings dir", rel)
	}

	abs := tb.resolvePath("/videos/demo.mp4")
	if abs != "/videos/demo.mp4" {
		t.Errorf("absolute path = %q, want unchanged", abs)
	}
}

func TestResolveOutput_CreatesParent(t *testing.T) {
	tb := newTestToolbox(t)

	out, err := tb.resolveOutput("nested/dir/out.mp4")
	if err != nil {
		t.Fatalf("resolveOutput() error = %v", err)
	}
	if fi, err := os.Stat(filepath.Dir(out)); err != nil || !fi.IsDir() {
		t.Errorf("parent dir not created: %v", err)
	}
}

func TestRecordingStatus_Idle(t *testing.T) {
	tb := newTestToolbox(t)

	st, err := tb.RecordingStatus(context.Background())
	if err != nil {
		t.Fatalf("RecordingStatus() error = %v", err)
	}
	if st.State != "idle" {
		t.Errorf("State = %q, want idle", st.State)
	}
	if st.OutputPath != "" || st.Elapsed != 0 {
		t.Errorf("idle status carries recording fields: %+v", st)
	}
}

func TestListMedia_FiltersNonMedia(t *testing.T) {
	tb := newTestToolbox(t)
	dir := tb.cfg.RecordingsDir

	for _, name := range []string{"demo.mp4", "voice.mp3", "notes.txt", "Clip.MOV"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir.mp4"), 0o755); err != nil {
		t.Fatal(err)
	}

	resp, err := tb.ListMedia(context.Background())
	if err != nil {
		t.Fatalf("ListMedia() error = %v", err)
	}
	if len(resp.Files) != 3 {
		t.Fatalf("got %d files, want 3: %+v", len(resp.Files), resp.Files)
	}
	for _, f := range resp.Files {
		if f.Name == "notes.txt" {
			t.Error("non-media file listed")
		}
		if f.Name == "subdir.mp4" {
			t.Error("directory listed")
		}
	}
}

func TestListMedia_MissingDirIsEmpty(t *testing.T) {
	tb := newTestToolbox(t)
	tb.cfg.RecordingsDir = filepath.Join(tb.cfg.RecordingsDir, "never-created")

	resp, err := tb.ListMedia(context.Background())
	if err != nil {
		t.Fatalf("ListMedia() error = %v", err)
	}
	if len(resp.Files) != 0 {
		t.Errorf("files = %+v, want empty", resp.Files)
	}
}
