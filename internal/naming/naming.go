// Package naming generates output filenames for recordings and narration
// and keeps concurrent requests from claiming the same path.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RecordingName returns an auto-generated recording filename, timestamped
// and suffixed with a short random id so two recordings in the same second
// never collide.
func RecordingName(t time.Time) string {
	return fmt.Sprintf("recording_%s_%s.mp4", t.Format("20060102_150405"), shortID())
}

// SpeechName returns an auto-generated narration filename.
func SpeechName(t time.Time) string {
	return fmt.Sprintf("tts_%s_%s.mp3", t.Format("20060102_150405"), shortID())
}

func shortID() string {
	return uuid.NewString()[:8]
}

// EnsureExt appends ext (with leading dot) when name has no extension.
func EnsureExt(name, ext string) string {
	if filepath.Ext(name) == "" {
		return name + ext
	}
	return name
}

// CollisionResolver tracks output paths claimed by requests and resolves
// duplicates by appending " - dupN" suffixes. All methods are
// goroutine-safe.
type CollisionResolver struct {
	mu       sync.Mutex
	owners   map[string]string // output path → request id that owns it
	counters map[string]int    // base output path → next dup counter
}

// NewCollisionResolver creates a ready-to-use resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{
		owners:   make(map[string]string),
		counters: make(map[string]int),
	}
}

// Resolve returns the final output path for the request, handling
// collisions. If requestedOutput is unclaimed (or already owned by this
// request), it is returned as-is. Otherwise a " - dupN" variant is
// generated.
func (cr *CollisionResolver) Resolve(requestID, requestedOutput string) string {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	owner, exists := cr.owners[requestedOutput]
	if !exists || owner == requestID {
		cr.owners[requestedOutput] = requestID
		return requestedOutput
	}

	dir := filepath.Dir(requestedOutput)
	base := filepath.Base(requestedOutput)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	counter := cr.counters[requestedOutput]
	if counter == 0 {
		counter = 1
	}

	for {
		candidate := filepath.Join(dir, fmt.Sprintf("%s - dup%d%s", stem, counter, ext))
		cOwner, cExists := cr.owners[candidate]
		if !cExists || cOwner == requestID {
			cr.counters[requestedOutput] = counter + 1
			cr.owners[candidate] = requestID
			return candidate
		}
		counter++
	}
}
