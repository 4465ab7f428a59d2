package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestRunner_HaltAfterProcessExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the capture process")
	}
	script := writeFakeFfmpeg(t, 2)
	t.Setenv("PATH", filepath.Dir(script)+string(os.PathListSeparator)+os.Getenv("PATH"))

	r := newRunner(testLogger{t}, 1, false)
	out := filepath.Join(t.TempDir(), "out.mp4")
	if err := r.launch(context.Background(), []string{"-i", "fake", out}, out); err != nil {
		t.Fatalf("launch() error = %v", err)
	}
	if !r.alive() {
		t.Fatal("alive() = false right after launch")
	}

	// Let the process exit on its own, observing liveness the whole way.
	deadline := time.Now().Add(10 * time.Second)
	for r.alive() {
		if time.Now().After(deadline) {
			t.Fatal("fake capture never exited")
		}
		time.Sleep(50 * time.Millisecond)
	}

	// The stop path must still see the exit and return promptly instead of
	// escalating signals against a dead pid.
	haltErr := make(chan error, 1)
	go func() {
		_, err := r.halt(context.Background())
		haltErr <- err
	}()
	select {
	case err := <-haltErr:
		if !errors.Is(err, ErrIncompleteArtifact) {
			t.Errorf("halt() error = %v, want ErrIncompleteArtifact", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("halt() blocked after the capture already exited")
	}
	if r.alive() {
		t.Error("alive() = true after halt")
	}
}
