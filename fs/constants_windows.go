//go:build windows

package fs

import "golang.org/x/sys/windows"

// GetConstants returns the platform constant table. The windows package
// defines these with the conventional unix-compatible values, which is
// exactly what callers constructing portable open flags expect.
func GetConstants() Constants {
	return Constants{
		O_RDONLY:   windows.O_RDONLY,
		O_WRONLY:   windows.O_WRONLY,
		O_RDWR:     windows.O_RDWR,
		O_APPEND:   windows.O_APPEND,
		O_CREAT:    windows.O_CREAT,
		O_EXCL:     windows.O_EXCL,
		O_TRUNC:    windows.O_TRUNC,
		O_SYNC:     windows.O_SYNC,
		O_NONBLOCK: windows.O_NONBLOCK,

		S_IFMT:   windows.S_IFMT,
		S_IFREG:  windows.S_IFREG,
		S_IFDIR:  windows.S_IFDIR,
		S_IFLNK:  windows.S_IFLNK,
		S_IFCHR:  windows.S_IFCHR,
		S_IFBLK:  windows.S_IFBLK,
		S_IFIFO:  windows.S_IFIFO,
		S_IFSOCK: windows.S_IFSOCK,
	}
}
