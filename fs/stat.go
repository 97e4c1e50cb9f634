package fs

import "os"

// StatInfo is the JSON-friendly projection of os.FileInfo returned by
// stat/lstat/fstat, since os.FileInfo itself isn't directly marshalable
// (its Sys() value is platform-specific).
type StatInfo struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Mode    uint32 `json:"mode"`
	ModTime int64  `json:"mtimeMs"`
	IsDir   bool   `json:"isDirectory"`
}

// InfoToMap projects info into a StatInfo, or the zero value if info is
// nil (e.g. when the stat call itself failed and the caller only cares
// about the accompanying error).
func InfoToMap(info os.FileInfo) StatInfo {
	if info == nil {
		return StatInfo{}
	}
	return StatInfo{
		Name:    info.Name(),
		Size:    info.Size(),
		Mode:    uint32(info.Mode()),
		ModTime: info.ModTime().UnixMilli(),
		IsDir:   info.IsDir(),
	}
}
