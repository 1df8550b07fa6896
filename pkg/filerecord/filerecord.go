package filerecord

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// ErrNotRegular is returned by Stat for directories, devices, sockets and pipes.
var ErrNotRegular = errors.New("not a regular file")

// FileID represents a unique file identifier (device ID + inode number).
type FileID struct {
	Device uint64 // Device ID
	Inode  uint64 // Inode number
}

// String returns a string representation of the FileID.
func (f FileID) String() string {
	return fmt.Sprintf("%d:%d", f.Device, f.Inode)
}

// FileRecord is an immutable snapshot of a file taken at stat time.
// It may go stale if the file is changed before it is read.
type FileRecord struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	ID        FileID    `json:"id"`
	HasID     bool      `json:"-"`
	LinkCount uint64    `json:"link_count"`
	Created   time.Time `json:"created"`
	Modified  time.Time `json:"modified"`
	Accessed  time.Time `json:"accessed"`
	Owner     uint32    `json:"owner"`
}

// Newest returns the later of the creation and modification times.
func (r FileRecord) Newest() time.Time {
	if r.Created.After(r.Modified) {
		return r.Created
	}
	return r.Modified
}

// Stat takes a snapshot of the regular file at path. Symlinks are
// resolved only when follow is set.
func Stat(path string, follow bool) (FileRecord, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileRecord{}, errors.Wrapf(err, "resolve absolute path %s", path)
	}

	var info fs.FileInfo
	if follow {
		info, err = os.Stat(abs)
	} else {
		info, err = os.Lstat(abs)
	}
	if err != nil {
		return FileRecord{}, errors.Wrap(err, "stat file")
	}

	if !info.Mode().IsRegular() {
		return FileRecord{}, errors.Wrap(ErrNotRegular, abs)
	}

	return FromFileInfo(abs, info), nil
}

// FromFileInfo builds a record from info already obtained for path.
func FromFileInfo(path string, info fs.FileInfo) FileRecord {
	rec := FileRecord{
		Path:      path,
		Size:      info.Size(),
		LinkCount: 1,
		Created:   info.ModTime(),
		Modified:  info.ModTime(),
		Accessed:  info.ModTime(),
	}

	if si, ok := sysInfo(path, info); ok {
		rec.ID = si.id
		rec.HasID = true
		rec.LinkCount = si.nlink
		rec.Owner = si.owner
		if !si.created.IsZero() {
			rec.Created = si.created
		}
		if !si.accessed.IsZero() {
			rec.Accessed = si.accessed
		}
	}

	return rec
}

// statInfo holds platform-specific file metadata.
type statInfo struct {
	id       FileID
	nlink    uint64
	owner    uint32
	created  time.Time
	accessed time.Time
}
