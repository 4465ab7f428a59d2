// Package winmgr enumerates windows and screens through each platform's
// native tooling: wmctrl and xrandr on Linux, osascript on macOS, PowerShell
// on Windows. Results are queried fresh on every call; windows move and close
// between calls.
package winmgr

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Sentinel errors for window and screen enumeration.
var (
	// ErrWindowNotFound means no visible window title matched the query.
	ErrWindowNotFound = errors.New("window not found")
	// ErrToolMissing means the platform enumeration tool is not installed.
	ErrToolMissing = errors.New("window enumeration tool not available")
	// ErrUnsupported means the platform has no window enumeration support.
	ErrUnsupported = errors.New("window enumeration not supported on this platform")
)

// Bounds is a window or screen rectangle in desktop coordinates.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Window is one visible top-level window.
type Window struct {
	Title  string  `json:"title"`
	App    string  `json:"app,omitempty"`
	ID     string  `json:"id,omitempty"`
	PID    int     `json:"pid,omitempty"`
	Bounds *Bounds `json:"bounds,omitempty"`
}

// Screen is one attached display.
type Screen struct {
	Index  int     `json:"index"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Scale  float64 `json:"scale,omitempty"`
}

// List returns all visible top-level windows, dispatching on the current
// platform.
func List(ctx context.Context) ([]Window, error) {
	switch runtime.GOOS {
	case "linux":
		return listLinux(ctx)
	case "darwin":
		return listDarwin(ctx)
	case "windows":
		return listWindows(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, runtime.GOOS)
	}
}

// Resolve finds the first window whose title contains query
// (case-insensitive) and returns its bounds. Windows without reported bounds
// match but yield a zero rectangle; capture backends treat that as
// full-screen.
func Resolve(ctx context.Context, query string) (Window, error) {
	windows, err := List(ctx)
	if err != nil {
		return Window{}, err
	}
	if w, ok := MatchTitle(windows, query); ok {
		return w, nil
	}
	return Window{}, fmt.Errorf("%w: %q", ErrWindowNotFound, query)
}

// MatchTitle returns the first window whose title contains query,
// case-insensitive. Split out from Resolve so matching is testable without a
// window system.
func MatchTitle(windows []Window, query string) (Window, bool) {
	q := strings.ToLower(query)
	for _, w := range windows {
		if strings.Contains(strings.ToLower(w.Title), q) {
			return w, true
		}
	}
	return Window{}, false
}

// ListScreens returns all attached displays.
func ListScreens(ctx context.Context) ([]Screen, error) {
	switch runtime.GOOS {
	case "linux":
		return screensLinux(ctx)
	case "darwin":
		return screensDarwin(ctx)
	case "windows":
		return screensWindows(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, runtime.GOOS)
	}
}
