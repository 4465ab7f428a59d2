package winmgr

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// PowerShell one-liners. Windows enumeration uses Get-Process filtered to
// processes with a main window; screen enumeration uses WinForms' Screen
// class. Both emit one pipe-separated line per item.
const (
	psListWindows = `Get-Process | Where-Object { $_.MainWindowTitle -ne "" } | ForEach-Object { "$($_.Id)|$($_.ProcessName)|$($_.MainWindowTitle)" }`

	psListScreens = `Add-Type -AssemblyName System.Windows.Forms; [System.Windows.Forms.Screen]::AllScreens | ForEach-Object { "$($_.Bounds.X)|$($_.Bounds.Y)|$($_.Bounds.Width)|$($_.Bounds.Height)" }`
)

func listWindows(ctx context.Context) ([]Window, error) {
	out, err := runPowershell(ctx, psListWindows)
	if err != nil {
		return nil, err
	}
	return ParsePowershellWindows(out), nil
}

func screensWindows(ctx context.Context) ([]Screen, error) {
	out, err := runPowershell(ctx, psListScreens)
	if err != nil {
		return nil, err
	}
	return ParsePowershellScreens(out), nil
}

func runPowershell(ctx context.Context, script string) (string, error) {
	if _, err := exec.LookPath("powershell"); err != nil {
		return "", fmt.Errorf("%w: powershell", ErrToolMissing)
	}
	out, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", script).Output()
	if err != nil {
		return "", fmt.Errorf("powershell: %w", err)
	}
	return string(out), nil
}

// ParsePowershellWindows parses pipe-separated window lines:
//
//	1234|notepad|Untitled - Notepad
//
// Titles may themselves contain pipes, so only the first two separators
// split. gdigrab captures by title, so bounds are not reported here.
// Exported for testing.
func ParsePowershellWindows(out string) []Window {
	var windows []Window
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 3 || parts[2] == "" {
			continue
		}
		pid, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
		windows = append(windows, Window{
			Title: parts[2],
			App:   parts[1],
			PID:   pid,
		})
	}
	return windows
}

// ParsePowershellScreens parses pipe-separated display lines:
//
//	0|0|1920|1080
//
// Exported for testing.
func ParsePowershellScreens(out string) []Screen {
	var screens []Screen
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(strings.TrimSpace(line), "|")
		if len(parts) < 4 {
			continue
		}
		x, _ := strconv.Atoi(parts[0])
		y, _ := strconv.Atoi(parts[1])
		w, _ := strconv.Atoi(parts[2])
		h, _ := strconv.Atoi(parts[3])
		if w <= 0 || h <= 0 {
			continue
		}
		screens = append(screens, Screen{
			Index:  len(screens),
			X:      x,
			Y:      y,
			Width:  w,
			Height: h,
		})
	}
	return screens
}
