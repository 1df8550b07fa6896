//go:build darwin || freebsd || netbsd

package filerecord

import (
	"io/fs"
	"syscall"
	"time"
)

func sysInfo(_ string, info fs.FileInfo) (statInfo, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok || stat == nil {
		return statInfo{}, false
	}

	return statInfo{
		id: FileID{
			Device: uint64(stat.Dev),
			Inode:  uint64(stat.Ino),
		},
		nlink:    uint64(stat.Nlink),
		owner:    stat.Uid,
		created:  time.Unix(int64(stat.Birthtimespec.Sec), int64(stat.Birthtimespec.Nsec)),
		accessed: time.Unix(int64(stat.Atimespec.Sec), int64(stat.Atimespec.Nsec)),
	}, true
}
