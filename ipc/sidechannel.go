package ipc

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/nativebridge/kernel/kernelerr"
)

// Binary request bodies travel out-of-band from the textual ipc:// URI,
// on a side buffer with a fixed two-byte prefix followed by a 24-byte
// header of ASCII (index, seq) fields plus the opaque body.

// magicBytes is the side-buffer prefix identifying a framed binary body.
var magicBytes = []byte{0x62, 0x35}

const (
	sideIndexWidth  = 8
	sideSeqWidth    = 16
	sideHeaderWidth = sideIndexWidth + sideSeqWidth
)

// Body is a decoded side-channel frame: the (index, seq) pair correlating
// it with its ipc:// control message, plus the opaque payload bytes.
type Body struct {
	Index int
	Seq   string
	Bytes []byte
}

// EncodeBody frames a binary body for the side channel. Index and seq
// are rendered as space-padded ASCII fields of fixed width so the header
// is always exactly 24 bytes.
func EncodeBody(index int, seq string, body []byte) []byte {
	out := make([]byte, 0, len(magicBytes)+sideHeaderWidth+len(body))
	out = append(out, magicBytes...)
	out = appendPadded(out, strconv.Itoa(index), sideIndexWidth)
	out = appendPadded(out, seq, sideSeqWidth)
	return append(out, body...)
}

func appendPadded(dst []byte, s string, width int) []byte {
	if len(s) > width {
		s = s[:width]
	}
	dst = append(dst, s...)
	for i := len(s); i < width; i++ {
		dst = append(dst, ' ')
	}
	return dst
}

// DecodeBody parses a side-channel frame produced by EncodeBody (or the
// JavaScript side's equivalent). A buffer without the magic prefix or
// shorter than the fixed header is rejected.
func DecodeBody(buf []byte) (*Body, error) {
	if len(buf) < len(magicBytes)+sideHeaderWidth {
		return nil, kernelerr.Internal("EINVAL", "ipc: side-channel frame too short")
	}
	if !bytes.HasPrefix(buf, magicBytes) {
		return nil, kernelerr.Internal("EINVAL", "ipc: side-channel frame missing magic prefix")
	}

	header := buf[len(magicBytes) : len(magicBytes)+sideHeaderWidth]
	indexField := strings.TrimSpace(string(header[:sideIndexWidth]))
	seqField := strings.TrimSpace(string(header[sideIndexWidth:]))

	index := 0
	if indexField != "" {
		n, err := strconv.Atoi(indexField)
		if err != nil {
			return nil, kernelerr.Internal("EINVAL", "ipc: side-channel index is not numeric")
		}
		index = n
	}

	return &Body{
		Index: index,
		Seq:   seqField,
		Bytes: buf[len(magicBytes)+sideHeaderWidth:],
	}, nil
}
