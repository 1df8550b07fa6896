//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package confirm

import "os"

func canLock() bool {
	return false
}

func openLocked(path string) (*os.File, error) {
	return os.Open(path)
}
