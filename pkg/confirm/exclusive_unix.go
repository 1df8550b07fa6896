//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package confirm

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/autobrr/dupescan/pkg/scanerr"
)

func canLock() bool {
	return os.Geteuid() == 0
}

// openLocked opens path and takes an exclusive advisory lock that is
// released when the file is closed.
func openLocked(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, errors.Wrap(scanerr.ErrBusy, path)
		}
		return nil, errors.Wrapf(err, "lock %s", path)
	}

	return f, nil
}
