package filerecord

import (
	"io/fs"
	"syscall"
	"time"
)

// sysInfo extracts device, inode, link count, owner and timestamps from info.
// Linux exposes the inode change time rather than a birth time; it is used as
// the creation time.
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
		created:  time.Unix(int64(stat.Ctim.Sec), int64(stat.Ctim.Nsec)),
		accessed: time.Unix(int64(stat.Atim.Sec), int64(stat.Atim.Nsec)),
	}, true
}
