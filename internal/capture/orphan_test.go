package capture

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

type testLogger struct{ t *testing.T }

func (l testLogger) Record(format string, args ...interface{}) { l.t.Logf(format, args...) }
func (l testLogger) Warn(format string, args ...interface{})   { l.t.Logf(format, args...) }
func (l testLogger) Debug(format string, args ...interface{})  { l.t.Logf(format, args...) }

// writeFakeFfmpeg writes a shell script named ffmpeg that ignores its
// arguments and sleeps. The trailing exit keeps the shell from execing the
// sleep, so the process name stays "ffmpeg".
func writeFakeFfmpeg(t *testing.T, sleepSeconds int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\nsleep " + strconv.Itoa(sleepSeconds) + "\nexit 0\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func waitGone(t *testing.T, pid int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if ok, _ := process.PidExists(int32(pid)); !ok {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Errorf("pid %d still running after sweep", pid)
}

func TestCleanOrphans_ReapsCrashedCapture(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("relies on /proc process names")
	}
	recDir := t.TempDir()
	script := writeFakeFfmpeg(t, 30)

	// Launch through a throwaway shell so the fake capture is not our child,
	// like a process left behind by a server that died.
	out, err := exec.Command("sh", "-c",
		script+" -f x11grab "+filepath.Join(recDir, "crash.mp4")+" >/dev/null 2>&1 & echo $!").Output()
	if err != nil {
		t.Fatal(err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		t.Fatalf("orphan pid: %v", err)
	}
	t.Cleanup(func() {
		if p, err := os.FindProcess(pid); err == nil {
			_ = p.Kill()
		}
	})
	if ok, _ := process.PidExists(int32(pid)); !ok {
		t.Fatalf("orphan pid %d not running", pid)
	}

	cleaned, err := CleanOrphans(recDir, testLogger{t})
	if err != nil {
		t.Fatalf("CleanOrphans() error = %v", err)
	}
	if cleaned != 1 {
		t.Errorf("cleaned = %d, want 1", cleaned)
	}
	waitGone(t, pid)
}

func TestCleanOrphans_SparesOwnedCapture(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("relies on /proc process names")
	}
	recDir := t.TempDir()
	script := writeFakeFfmpeg(t, 30)

	// Our own child with the recordings dir on its command line, standing in
	// for a live capture or a concurrent transform this server launched.
	cmd := exec.Command(script, "-f", "x11grab", filepath.Join(recDir, "live.mp4"))
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	cleaned, err := CleanOrphans(recDir, testLogger{t})
	if err != nil {
		t.Fatalf("CleanOrphans() error = %v", err)
	}
	if cleaned != 0 {
		t.Errorf("cleaned = %d, want 0", cleaned)
	}
	if ok, _ := process.PidExists(int32(cmd.Process.Pid)); !ok {
		t.Error("owned capture process was killed by the sweep")
	}
}
