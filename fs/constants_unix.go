//go:build unix

package fs

import "golang.org/x/sys/unix"

// GetConstants returns the platform constant table.
func GetConstants() Constants {
	return Constants{
		O_RDONLY:   unix.O_RDONLY,
		O_WRONLY:   unix.O_WRONLY,
		O_RDWR:     unix.O_RDWR,
		O_APPEND:   unix.O_APPEND,
		O_CREAT:    unix.O_CREAT,
		O_EXCL:     unix.O_EXCL,
		O_TRUNC:    unix.O_TRUNC,
		O_SYNC:     unix.O_SYNC,
		O_NONBLOCK: unix.O_NONBLOCK,

		S_IFMT:   unix.S_IFMT,
		S_IFREG:  unix.S_IFREG,
		S_IFDIR:  unix.S_IFDIR,
		S_IFLNK:  unix.S_IFLNK,
		S_IFCHR:  unix.S_IFCHR,
		S_IFBLK:  unix.S_IFBLK,
		S_IFIFO:  unix.S_IFIFO,
		S_IFSOCK: unix.S_IFSOCK,
	}
}
