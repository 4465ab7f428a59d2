// Package session holds the recording state machine: idle or recording,
// nothing else. All transitions run under one mutex, held across the backend
// call, so two near-simultaneous starts serialize and exactly one wins.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/demoreel/demoreel/internal/capture"
)

// Sentinel errors for state machine violations.
var (
	// ErrAlreadyRecording means Start was called while a recording is live.
	ErrAlreadyRecording = errors.New("a recording is already in progress")
	// ErrNoActiveRecording means Stop was called while idle.
	ErrNoActiveRecording = errors.New("no recording in progress")
)

// State is the session's lifecycle position.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

// StartInfo reports a successfully started recording.
type StartInfo struct {
	OutputPath string
	StartedAt  time.Time
}

// StopInfo reports a successfully finished recording.
type StopInfo struct {
	OutputPath string
	Elapsed    float64
	Artifact   capture.Artifact
}

// StatusInfo is a point-in-time snapshot of the session. ProcessAlive is
// only meaningful while recording: false there means the capture process
// died underneath a session that still thinks it is live.
type StatusInfo struct {
	State        State
	OutputPath   string
	Elapsed      float64
	ProcessAlive bool
}

// Session serializes recording lifecycle operations over one capture backend.
type Session struct {
	backend capture.Backend

	mu         chan struct{} // Semaphore, so Stop can honor ctx while waiting.
	state      State
	outputPath string
	startedAt  time.Time
	clock      func() time.Time
}

// New returns an idle session over backend.
func New(backend capture.Backend) *Session {
	s := &Session{
		backend: backend,
		mu:      make(chan struct{}, 1),
		state:   StateIdle,
		clock:   time.Now,
	}
	return s
}

func (s *Session) lock(ctx context.Context) error {
	select {
	case s.mu <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) unlock() { <-s.mu }

// Start begins a recording. Fails with [ErrAlreadyRecording] when one is
// live; a start whose backend launch fails leaves the session idle.
func (s *Session) Start(ctx context.Context, target capture.Target, opts capture.Options) (StartInfo, error) {
	if err := s.lock(ctx); err != nil {
		return StartInfo{}, err
	}
	defer s.unlock()

	if s.state == StateRecording {
		return StartInfo{}, fmt.Errorf("%w: writing %s", ErrAlreadyRecording, s.outputPath)
	}
	if err := s.backend.Start(ctx, target, opts); err != nil {
		return StartInfo{}, err
	}

	s.state = StateRecording
	s.outputPath = opts.OutputPath
	s.startedAt = s.clock()
	return StartInfo{OutputPath: s.outputPath, StartedAt: s.startedAt}, nil
}

// Stop ends the live recording and verifies its artifact. The session
// returns to idle even when the stop or verification fails; a broken capture
// must never wedge the machine in the recording state.
func (s *Session) Stop(ctx context.Context) (StopInfo, error) {
	if err := s.lock(ctx); err != nil {
		return StopInfo{}, err
	}
	defer s.unlock()

	if s.state != StateRecording {
		return StopInfo{}, ErrNoActiveRecording
	}
	outputPath := s.outputPath
	elapsed := s.clock().Sub(s.startedAt).Seconds()

	s.state = StateIdle
	s.outputPath = ""
	s.startedAt = time.Time{}

	artifact, err := s.backend.Stop(ctx)
	if err != nil {
		return StopInfo{}, err
	}
	return StopInfo{OutputPath: outputPath, Elapsed: elapsed, Artifact: artifact}, nil
}

// Status reports the current state. While recording it also asks the backend
// whether the capture process is genuinely alive, a non-blocking check.
func (s *Session) Status() StatusInfo {
	s.mu <- struct{}{}
	defer s.unlock()

	info := StatusInfo{State: s.state}
	if s.state == StateRecording {
		info.OutputPath = s.outputPath
		info.Elapsed = s.clock().Sub(s.startedAt).Seconds()
		info.ProcessAlive = s.backend.Alive()
	}
	return info
}

// Close stops any live recording during shutdown, discarding the artifact
// result.
func (s *Session) Close(ctx context.Context) error {
	_, err := s.Stop(ctx)
	if errors.Is(err, ErrNoActiveRecording) {
		return nil
	}
	return err
}
