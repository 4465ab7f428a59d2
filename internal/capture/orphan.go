package capture

import (
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// CleanOrphans kills ffmpeg processes left writing into dir by a previous
// server that died without stopping its recording. Matching is by process
// name plus the recordings directory appearing in the command line, so
// unrelated ffmpeg work on the machine is never touched. Children of the
// current process are excluded: a live capture or a concurrent transform
// owned by this server is not an orphan.
//
// Returns how many processes were cleaned up.
func CleanOrphans(dir string, log Logger) (int, error) {
	procs, err := process.Processes()
	if err != nil {
		return 0, err
	}

	self := int32(os.Getpid())
	cleaned := 0
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		if ppid, err := p.Ppid(); err == nil && ppid == self {
			continue
		}
		name, err := p.Name()
		if err != nil || !strings.Contains(name, "ffmpeg") {
			continue
		}
		cmdline, err := p.Cmdline()
		if err != nil || !strings.Contains(cmdline, dir) {
			continue
		}

		log.Warn("cleaning orphan capture process pid %d", p.Pid)
		if err := p.Terminate(); err == nil {
			// Give it a moment to finalize the file before escalating.
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				if running, _ := p.IsRunning(); !running {
					break
				}
				time.Sleep(100 * time.Millisecond)
			}
		}
		if running, _ := p.IsRunning(); running {
			_ = p.Kill()
		}
		cleaned++
	}
	return cleaned, nil
}
