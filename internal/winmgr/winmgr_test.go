package winmgr

import (
	"testing"
)

const wmctrlOutput = `0x04000007  0 1234 0 0 1920 1080 navigator.Firefox  myhost Mozilla Firefox
0x04800003  0 5678 100 50 1280 720 code.Code  myhost settings.json - myproject - Visual Studio Code
0x05000001 -1 910 0 0 1920 24 plank.Plank  myhost plank
bogus line
`

func TestParseWmctrl(t *testing.T) {
	windows := ParseWmctrl(wmctrlOutput)
	if len(windows) != 3 {
		t.Fatalf("got %d windows, want 3", len(windows))
	}

	first := windows[0]
	if first.Title != "Mozilla Firefox" {
		t.Errorf("Title = %q, want %q", first.Title, "Mozilla Firefox")
	}
	if first.App != "Firefox" {
		t.Errorf("App = %q, want %q", first.App, "Firefox")
	}
	if first.PID != 1234 {
		t.Errorf("PID = %d, want 1234", first.PID)
	}
	if first.Bounds == nil || first.Bounds.Width != 1920 || first.Bounds.Height != 1080 {
		t.Errorf("Bounds = %+v, want 1920x1080", first.Bounds)
	}

	second := windows[1]
	if second.Title != "settings.json - myproject - Visual Studio Code" {
		t.Errorf("multi-word title = %q", second.Title)
	}
	if second.Bounds.X != 100 || second.Bounds.Y != 50 {
		t.Errorf("Bounds offset = %d,%d, want 100,50", second.Bounds.X, second.Bounds.Y)
	}
}

func TestParseWmctrl_Empty(t *testing.T) {
	if got := ParseWmctrl(""); len(got) != 0 {
		t.Errorf("ParseWmctrl(\"\") = %v, want empty", got)
	}
}

const xrandrOutput = `Screen 0: minimum 320 x 200, current 3840 x 1080, maximum 16384 x 16384
HDMI-1 connected primary 1920x1080+0+0 (normal left inverted right x axis y axis) 527mm x 296mm
   1920x1080     60.00*+  50.00
DP-1 connected 1920x1080+1920+0 (normal left inverted right x axis y axis) 527mm x 296mm
   1920x1080     60.00*+
DP-2 disconnected (normal left inverted right x axis y axis)
VGA-1 connected (normal left inverted right x axis y axis)
`

func TestParseXrandr(t *testing.T) {
	screens := ParseXrandr(xrandrOutput)
	if len(screens) != 2 {
		t.Fatalf("got %d screens, want 2 (disconnected and inactive skipped)", len(screens))
	}
	if screens[0].Width != 1920 || screens[0].Height != 1080 || screens[0].X != 0 {
		t.Errorf("screen 0 = %+v", screens[0])
	}
	if screens[1].X != 1920 {
		t.Errorf("screen 1 X = %d, want 1920", screens[1].X)
	}
	if screens[1].Index != 1 {
		t.Errorf("screen 1 Index = %d, want 1", screens[1].Index)
	}
}

const darwinWindowsOutput = "Safari\tApple - Start Page\t0\t25\t1440\t875\n" +
	"Terminal\t~ - zsh\t100\t100\t600\t400\n" +
	"Finder\t\t0\t0\t0\t0\n" // Empty title: skipped.

func TestParseDarwinWindows(t *testing.T) {
	windows := ParseDarwinWindows(darwinWindowsOutput)
	if len(windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(windows))
	}
	if windows[0].App != "Safari" || windows[0].Title != "Apple - Start Page" {
		t.Errorf("window 0 = %+v", windows[0])
	}
	if windows[1].Bounds.X != 100 || windows[1].Bounds.Width != 600 {
		t.Errorf("window 1 bounds = %+v", windows[1].Bounds)
	}
}

func TestParseDarwinScreens(t *testing.T) {
	out := "0,0,1440,900,2.0\n0,900,1920,1080,1.0\nnot a screen\n"
	screens := ParseDarwinScreens(out)
	if len(screens) != 2 {
		t.Fatalf("got %d screens, want 2", len(screens))
	}
	if screens[0].Width != 1440 || screens[0].Scale != 2.0 {
		t.Errorf("screen 0 = %+v", screens[0])
	}
}

func TestParsePowershellWindows(t *testing.T) {
	out := "1234|notepad|Untitled - Notepad\r\n" +
		"5678|chrome|Tabs | Pipes | Chrome\r\n" +
		"999|svchost|\r\n"
	windows := ParsePowershellWindows(out)
	if len(windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(windows))
	}
	if windows[0].PID != 1234 || windows[0].App != "notepad" {
		t.Errorf("window 0 = %+v", windows[0])
	}
	if windows[1].Title != "Tabs | Pipes | Chrome" {
		t.Errorf("piped title mangled: %q", windows[1].Title)
	}
}

func TestParsePowershellScreens(t *testing.T) {
	out := "0|0|1920|1080\r\n1920|0|2560|1440\r\n"
	screens := ParsePowershellScreens(out)
	if len(screens) != 2 {
		t.Fatalf("got %d screens, want 2", len(screens))
	}
	if screens[1].X != 1920 || screens[1].Width != 2560 {
		t.Errorf("screen 1 = %+v", screens[1])
	}
}

func TestMatchTitle(t *testing.T) {
	windows := []Window{
		{Title: "Mozilla Firefox"},
		{Title: "settings.json - Visual Studio Code"},
	}
	tests := []struct {
		name      string
		query     string
		wantTitle string
		wantOK    bool
	}{
		{"exact word", "Firefox", "Mozilla Firefox", true},
		{"case insensitive", "firefox", "Mozilla Firefox", true},
		{"substring", "visual studio", "settings.json - Visual Studio Code", true},
		{"first match wins", "o", "Mozilla Firefox", true},
		{"no match", "Emacs", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchTitle(windows, tt.query)
			if ok != tt.wantOK || got.Title != tt.wantTitle {
				t.Errorf("MatchTitle(%q) = %q, %v; want %q, %v", tt.query, got.Title, ok, tt.wantTitle, tt.wantOK)
			}
		})
	}
}
