package runlock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Lock is a pidfile guard for the single-instance deployment invariant:
// the stream has exactly one writer, so exactly one river may run against
// a data directory. A second instance would fork the stream and silently
// lose contributions.
type Lock struct {
	path string
}

// Acquire claims the pidfile under dataDir. A pidfile naming a live
// process refuses startup; a stale file left by a dead process is
// replaced.
func Acquire(dataDir string) (*Lock, error) {
	path := filepath.Join(dataDir, "river.pid")

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("write pidfile: %w", werr)
			}
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create pidfile: %w", err)
		}

		pid, readErr := readPid(path)
		if readErr == nil && pid != os.Getpid() {
			if alive, _ := process.PidExists(int32(pid)); alive {
				return nil, fmt.Errorf("another instance is already running (pid %d)", pid)
			}
		}

		// Stale or unreadable pidfile: clear it and try once more
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale pidfile: %w", err)
		}
	}
	return nil, fmt.Errorf("could not claim pidfile %s", path)
}

// Release removes the pidfile.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the pidfile location.
func (l *Lock) Path() string {
	return l.path
}

func readPid(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pidfile: %w", err)
	}
	return pid, nil
}
