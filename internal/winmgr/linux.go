package winmgr

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// listLinux shells out to wmctrl. -l lists windows, -G adds geometry, -p adds
// the owning PID, -x adds the WM_CLASS.
func listLinux(ctx context.Context) ([]Window, error) {
	if _, err := exec.LookPath("wmctrl"); err != nil {
		return nil, fmt.Errorf("%w: wmctrl (install with apt install wmctrl)", ErrToolMissing)
	}
	out, err := exec.CommandContext(ctx, "wmctrl", "-lGpx").Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("wmctrl: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("wmctrl: %w", err)
	}
	return ParseWmctrl(string(out)), nil
}

// ParseWmctrl parses `wmctrl -lGpx` output. Each line is:
//
//	0x04000007  0 1234 10 20 1920 1080 class.Class host Window Title Here
//
// Columns: window id, desktop, pid, x, y, width, height, WM_CLASS, hostname,
// then the title as everything remaining. Exported for testing without a
// running window manager.
func ParseWmctrl(out string) []Window {
	var windows []Window
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 10 {
			continue
		}
		pid, _ := strconv.Atoi(fields[2])
		x, _ := strconv.Atoi(fields[3])
		y, _ := strconv.Atoi(fields[4])
		w, _ := strconv.Atoi(fields[5])
		h, _ := strconv.Atoi(fields[6])

		// App name from WM_CLASS, which is "instance.Class".
		app := fields[7]
		if i := strings.LastIndex(app, "."); i >= 0 {
			app = app[i+1:]
		}

		windows = append(windows, Window{
			Title:  strings.Join(fields[9:], " "),
			App:    app,
			ID:     fields[0],
			PID:    pid,
			Bounds: &Bounds{X: x, Y: y, Width: w, Height: h},
		})
	}
	return windows
}

// screensLinux shells out to xrandr and reports connected outputs.
func screensLinux(ctx context.Context) ([]Screen, error) {
	if _, err := exec.LookPath("xrandr"); err != nil {
		return nil, fmt.Errorf("%w: xrandr", ErrToolMissing)
	}
	out, err := exec.CommandContext(ctx, "xrandr", "--query").Output()
	if err != nil {
		return nil, fmt.Errorf("xrandr: %w", err)
	}
	return ParseXrandr(string(out)), nil
}

// ParseXrandr extracts connected outputs with an active mode from
// `xrandr --query` output, e.g.:
//
//	HDMI-1 connected primary 1920x1080+0+0 (normal left ...) 527mm x 296mm
//
// Outputs that are connected but off (no WxH+X+Y token) are skipped.
// Exported for testing.
func ParseXrandr(out string) []Screen {
	var screens []Screen
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[1] != "connected" {
			continue
		}
		for _, f := range fields[2:] {
			w, h, x, y, ok := parseMode(f)
			if !ok {
				continue
			}
			screens = append(screens, Screen{
				Index:  len(screens),
				X:      x,
				Y:      y,
				Width:  w,
				Height: h,
			})
			break
		}
	}
	return screens
}

// parseMode parses a "1920x1080+0+0" geometry token.
func parseMode(s string) (w, h, x, y int, ok bool) {
	res, rest, found := strings.Cut(s, "+")
	if !found {
		return 0, 0, 0, 0, false
	}
	xs, ys, found := strings.Cut(rest, "+")
	if !found {
		return 0, 0, 0, 0, false
	}
	ws, hs, found := strings.Cut(res, "x")
	if !found {
		return 0, 0, 0, 0, false
	}
	var err error
	if w, err = strconv.Atoi(ws); err != nil {
		return 0, 0, 0, 0, false
	}
	if h, err = strconv.Atoi(hs); err != nil {
		return 0, 0, 0, 0, false
	}
	if x, err = strconv.Atoi(xs); err != nil {
		return 0, 0, 0, 0, false
	}
	if y, err = strconv.Atoi(ys); err != nil {
		return 0, 0, 0, 0, false
	}
	return w, h, x, y, true
}
