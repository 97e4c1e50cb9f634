package fs

// Constants is the `fs.constants` operation's result: the platform's
// open-flag and stat-mode constants, exposed so IPC callers can build
// open flags without hard-coding per-platform values. GetConstants
// supplies the values in constants_unix.go/constants_windows.go.
type Constants struct {
	O_RDONLY   int `json:"O_RDONLY"`
	O_WRONLY   int `json:"O_WRONLY"`
	O_RDWR     int `json:"O_RDWR"`
	O_APPEND   int `json:"O_APPEND"`
	O_CREAT    int `json:"O_CREAT"`
	O_EXCL     int `json:"O_EXCL"`
	O_TRUNC    int `json:"O_TRUNC"`
	O_SYNC     int `json:"O_SYNC"`
	O_NONBLOCK int `json:"O_NONBLOCK"`

	S_IFMT   int `json:"S_IFMT"`
	S_IFREG  int `json:"S_IFREG"`
	S_IFDIR  int `json:"S_IFDIR"`
	S_IFLNK  int `json:"S_IFLNK"`
	S_IFCHR  int `json:"S_IFCHR"`
	S_IFBLK  int `json:"S_IFBLK"`
	S_IFIFO  int `json:"S_IFIFO"`
	S_IFSOCK int `json:"S_IFSOCK"`
}
