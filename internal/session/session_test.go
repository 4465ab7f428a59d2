package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/demoreel/demoreel/internal/capture"
)

// fakeBackend counts lifecycle calls and fails on demand.
type fakeBackend struct {
	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
	stopErr  error
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Start(ctx context.Context, target capture.Target, opts capture.Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	return nil
}

func (f *fakeBackend) Stop(ctx context.Context) (capture.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.stopErr != nil {
		return capture.Artifact{}, f.stopErr
	}
	return capture.Artifact{Path: "/tmp/out.mp4", SizeBytes: 1024, Duration: 5.0}, nil
}

func (f *fakeBackend) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts > f.stops
}

func opts() capture.Options {
	return capture.Options{Width: 1280, Height: 720, FPS: 30, OutputPath: "/tmp/out.mp4"}
}

func TestStartStop(t *testing.T) {
	ctx := context.Background()
	s := New(&fakeBackend{})

	info, err := s.Start(ctx, capture.Target{}, opts())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if info.OutputPath != "/tmp/out.mp4" {
		t.Errorf("OutputPath = %q", info.OutputPath)
	}
	if st := s.Status(); st.State != StateRecording {
		t.Errorf("state after start = %q, want recording", st.State)
	}

	stop, err := s.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if stop.Artifact.Duration != 5.0 {
		t.Errorf("artifact duration = %v, want 5.0", stop.Artifact.Duration)
	}
	if st := s.Status(); st.State != StateIdle {
		t.Errorf("state after stop = %q, want idle", st.State)
	}
}

func TestStartWhileRecording(t *testing.T) {
	ctx := context.Background()
	s := New(&fakeBackend{})

	if _, err := s.Start(ctx, capture.Target{}, opts()); err != nil {
		t.Fatal(err)
	}
	_, err := s.Start(ctx, capture.Target{}, opts())
	if !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRecording", err)
	}
}

func TestStopWhileIdle(t *testing.T) {
	s := New(&fakeBackend{})
	_, err := s.Stop(context.Background())
	if !errors.Is(err, ErrNoActiveRecording) {
		t.Errorf("Stop() on idle error = %v, want ErrNoActiveRecording", err)
	}
}

func TestFailedStartStaysIdle(t *testing.T) {
	ctx := context.Background()
	s := New(&fakeBackend{startErr: capture.ErrBackendUnavailable})

	_, err := s.Start(ctx, capture.Target{}, opts())
	if !errors.Is(err, capture.ErrBackendUnavailable) {
		t.Fatalf("Start() error = %v", err)
	}
	if st := s.Status(); st.State != StateIdle {
		t.Errorf("state after failed start = %q, want idle", st.State)
	}
}

func TestFailedStopStillGoesIdle(t *testing.T) {
	ctx := context.Background()
	s := New(&fakeBackend{stopErr: capture.ErrIncompleteArtifact})

	if _, err := s.Start(ctx, capture.Target{}, opts()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Stop(ctx); !errors.Is(err, capture.ErrIncompleteArtifact) {
		t.Fatalf("Stop() error = %v", err)
	}
	if st := s.Status(); st.State != StateIdle {
		t.Errorf("state after failed stop = %q, want idle (must not wedge)", st.State)
	}
	// A fresh start must work after the failed stop.
	if _, err := s.Start(ctx, capture.Target{}, opts()); err != nil {
		t.Errorf("Start() after failed stop = %v, want nil", err)
	}
}

func TestConcurrentStartsOneWins(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	s := New(backend)

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Start(ctx, capture.Target{}, opts())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	won, lost := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrAlreadyRecording):
			lost++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if won != 1 || lost != n-1 {
		t.Errorf("won=%d lost=%d, want 1 and %d", won, lost, n-1)
	}
	if backend.starts != 1 {
		t.Errorf("backend started %d times, want 1", backend.starts)
	}
}

func TestStatusElapsed(t *testing.T) {
	ctx := context.Background()
	s := New(&fakeBackend{})

	now := time.Now()
	s.clock = func() time.Time { return now }
	if _, err := s.Start(ctx, capture.Target{}, opts()); err != nil {
		t.Fatal(err)
	}

	s.clock = func() time.Time { return now.Add(42 * time.Second) }
	st := s.Status()
	if st.Elapsed != 42 {
		t.Errorf("Elapsed = %v, want 42", st.Elapsed)
	}
}

func TestStatusReportsProcessLiveness(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	s := New(backend)

	if st := s.Status(); st.ProcessAlive {
		t.Error("idle status reports a live process")
	}
	if _, err := s.Start(ctx, capture.Target{}, opts()); err != nil {
		t.Fatal(err)
	}
	if st := s.Status(); !st.ProcessAlive {
		t.Error("ProcessAlive = false while recording with a healthy backend")
	}

	// Capture dies underneath the session: state still says recording, the
	// liveness flag says the process is gone.
	backend.mu.Lock()
	backend.stops = backend.starts
	backend.mu.Unlock()
	st := s.Status()
	if st.State != StateRecording {
		t.Fatalf("state = %q, want recording", st.State)
	}
	if st.ProcessAlive {
		t.Error("ProcessAlive = true after the backend process died")
	}
}

func TestCloseIdleIsNoop(t *testing.T) {
	s := New(&fakeBackend{})
	if err := s.Close(context.Background()); err != nil {
		t.Errorf("Close() on idle = %v, want nil", err)
	}
}
