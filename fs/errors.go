package fs

import (
	"errors"
	"io/fs"
	"os"

	"github.com/nativebridge/kernel/kernelerr"
)

// translate maps an os/io error into the kernel's IPC-facing taxonomy: a
// missing path (ENOENT), a permission failure (EACCES) and any other I/O
// failure (EIO) become transport errors of type InternalError carrying
// the original error as Cause; an already-exists failure becomes an
// EEXIST AlreadyExists error. A *kernelerr.Error passes through as is.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if kerr, ok := err.(*kernelerr.Error); ok {
		return kerr
	}
	if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
		return kernelerr.Transport("ENOENT", err)
	}
	if errors.Is(err, fs.ErrPermission) || os.IsPermission(err) {
		return kernelerr.Transport("EACCES", err)
	}
	if errors.Is(err, fs.ErrExist) || os.IsExist(err) {
		return kernelerr.AlreadyExists("EEXIST", err.Error())
	}
	return kernelerr.Transport("EIO", err)
}
