package winmgr

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// AppleScript run through osascript. System Events reports windows of every
// visible process; the script emits one tab-separated line per window so no
// quoting in titles can break the framing.
const listWindowsScript = `
set out to ""
tell application "System Events"
	repeat with proc in (every process whose visible is true)
		set procName to name of proc
		repeat with win in (every window of proc)
			set winTitle to name of win
			set {xPos, yPos} to position of win
			set {w, h} to size of win
			set out to out & procName & tab & winTitle & tab & xPos & tab & yPos & tab & w & tab & h & linefeed
		end repeat
	end repeat
end tell
return out
`

// NSScreen geometry via the Objective-C bridge; one comma-separated line per
// display: x,y,width,height,scale.
const listScreensScript = `
use framework "AppKit"
set out to ""
repeat with scr in (current application's NSScreen's screens() as list)
	set f to scr's frame()
	set sf to scr's backingScaleFactor()
	set out to out & (item 1 of item 1 of f) & "," & (item 2 of item 1 of f) & "," & (item 1 of item 2 of f) & "," & (item 2 of item 2 of f) & "," & sf & linefeed
end repeat
return out
`

func listDarwin(ctx context.Context) ([]Window, error) {
	out, err := runOsascript(ctx, listWindowsScript)
	if err != nil {
		return nil, err
	}
	return ParseDarwinWindows(out), nil
}

func screensDarwin(ctx context.Context) ([]Screen, error) {
	out, err := runOsascript(ctx, listScreensScript)
	if err != nil {
		return nil, err
	}
	return ParseDarwinScreens(out), nil
}

func runOsascript(ctx context.Context, script string) (string, error) {
	if _, err := exec.LookPath("osascript"); err != nil {
		return "", fmt.Errorf("%w: osascript", ErrToolMissing)
	}
	out, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		return "", fmt.Errorf("osascript: %w (grant Accessibility permission in System Settings)", err)
	}
	return string(out), nil
}

// ParseDarwinWindows parses the tab-separated window listing:
//
//	Safari\tApple - Start Page\t0\t25\t1440\t875
//
// Windows with an empty title (palettes, hidden sheets) are skipped.
// Exported for testing.
func ParseDarwinWindows(out string) []Window {
	var windows []Window
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 6 || parts[1] == "" {
			continue
		}
		x, _ := strconv.Atoi(strings.TrimSpace(parts[2]))
		y, _ := strconv.Atoi(strings.TrimSpace(parts[3]))
		w, _ := strconv.Atoi(strings.TrimSpace(parts[4]))
		h, _ := strconv.Atoi(strings.TrimSpace(parts[5]))
		windows = append(windows, Window{
			Title:  parts[1],
			App:    parts[0],
			Bounds: &Bounds{X: x, Y: y, Width: w, Height: h},
		})
	}
	return windows
}

// ParseDarwinScreens parses the comma-separated display listing:
//
//	0,0,1440,900,2.0
//
// Exported for testing.
func ParseDarwinScreens(out string) []Screen {
	var screens []Screen
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(strings.TrimSpace(line), ",")
		if len(parts) < 5 {
			continue
		}
		x, _ := strconv.ParseFloat(parts[0], 64)
		y, _ := strconv.ParseFloat(parts[1], 64)
		w, _ := strconv.ParseFloat(parts[2], 64)
		h, _ := strconv.ParseFloat(parts[3], 64)
		scale, _ := strconv.ParseFloat(parts[4], 64)
		if w <= 0 || h <= 0 {
			continue
		}
		screens = append(screens, Screen{
			Index:  len(screens),
			X:      int(x),
			Y:      int(y),
			Width:  int(w),
			Height: int(h),
			Scale:  scale,
		})
	}
	return screens
}
