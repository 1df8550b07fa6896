package filerecord

import (
	"io/fs"
	"reflect"
	"syscall"
	"time"
)

// sysInfo reads the file identity on Windows. The volume serial number acts
// as the device and the 64-bit file index as the inode.
func sysInfo(path string, info fs.FileInfo) (statInfo, bool) {
	pathp, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return statInfo{}, false
	}

	attrs := uint32(syscall.FILE_FLAG_BACKUP_SEMANTICS)
	if isSymlink(info) {
		// Use FILE_FLAG_OPEN_REPARSE_POINT, otherwise CreateFile will follow symlink.
		// See https://docs.microsoft.com/en-us/windows/desktop/FileIO/symbolic-link-effects-on-file-systems-functions#createfile-and-createfiletransacted
		attrs |= syscall.FILE_FLAG_OPEN_REPARSE_POINT
	}

	h, err := syscall.CreateFile(pathp, 0, 0, nil, syscall.OPEN_EXISTING, attrs, 0)
	if err != nil {
		return statInfo{}, false
	}
	defer syscall.CloseHandle(h)

	var fi syscall.ByHandleFileInformation
	if err := syscall.GetFileInformationByHandle(h, &fi); err != nil {
		return statInfo{}, false
	}

	return statInfo{
		id: FileID{
			Device: uint64(fi.VolumeSerialNumber),
			Inode:  (uint64(fi.FileIndexHigh) << 32) | uint64(fi.FileIndexLow),
		},
		nlink:    uint64(fi.NumberOfLinks),
		created:  time.Unix(0, fi.CreationTime.Nanoseconds()),
		accessed: time.Unix(0, fi.LastAccessTime.Nanoseconds()),
	}, true
}

func isSymlink(fi fs.FileInfo) bool {
	// Use instructions described at
	// https://devblogs.microsoft.com/oldnewthing/20100212-00/?p=14963
	// to recognize whether it's a symlink.
	data, ok := fi.Sys().(*syscall.Win32FileAttributeData)
	if !ok || data.FileAttributes&syscall.FILE_ATTRIBUTE_REPARSE_POINT == 0 {
		return false
	}

	v := reflect.Indirect(reflect.ValueOf(fi))
	field := v.FieldByName("Reserved0")
	if !field.IsValid() {
		return fi.Mode()&fs.ModeSymlink != 0
	}
	reserved0 := field.Uint()

	return reserved0 == syscall.IO_REPARSE_TAG_SYMLINK ||
		reserved0 == 0xA0000003
}
