// Package ipc implements the kernel's wire codec: parsing an
// `ipc://name[/path]?k=v&…` request URI and producing the
// `{source, id, data|err}` JSON response envelope.
package ipc

import (
	"encoding/json"
	"math/rand"
	"net/url"
	"strconv"
	"strings"

	"github.com/nativebridge/kernel/kernelerr"
)

// Request is a parsed `ipc://` request. The reserved parameters "seq",
// "index" and "value" surface as dedicated fields; every pair, reserved
// or not, is also copied into Args.
type Request struct {
	URI   string
	Name  string
	Path  string
	Seq   string
	Index int
	Value string
	Args  map[string]string
}

// Has reports whether key was present in the request with a non-empty
// value.
func (r *Request) Has(key string) bool {
	v, ok := r.Args[key]
	return ok && v != ""
}

// Get returns Args[key] or fallback if absent.
func (r *Request) Get(key, fallback string) string {
	if v, ok := r.Args[key]; ok {
		return v
	}
	return fallback
}

// Parse decodes an ipc:// URI into a Request. The returned error is
// always nil: a string that does not start with "ipc://", or that is
// exactly "ipc://" or "ipc://?", yields a usable Request with empty Name
// and no Args, and query pairs without "=" are skipped.
func Parse(raw string) (*Request, error) {
	req := &Request{URI: raw, Args: make(map[string]string)}

	if !strings.HasPrefix(raw, "ipc://") {
		return req, nil
	}
	if raw == "ipc://" || raw == "ipc://?" {
		return req, nil
	}

	rawPath, query, _ := strings.Cut(raw, "?")

	pathParts := strings.Split(strings.TrimPrefix(rawPath, "ipc://"), "/")
	if len(pathParts) >= 1 {
		req.Name = pathParts[0]
	}
	if len(pathParts) > 1 {
		req.Path = strings.Join(pathParts[1:], "/")
	}

	if query == "" {
		return req, nil
	}

	for _, rawPair := range strings.Split(query, "&") {
		key, value, ok := strings.Cut(rawPair, "=")
		if !ok {
			continue
		}
		decoded, err := url.QueryUnescape(value)
		if err != nil {
			decoded = value
		}

		switch key {
		case "index":
			if n, err := strconv.Atoi(value); err == nil {
				req.Index = n
			}
		case "value":
			req.Value = decoded
		case "seq":
			req.Seq = decoded
		}
		req.Args[key] = decoded
	}

	return req, nil
}

// Envelope is the `{source, id, data|err}` JSON response shape.
type Envelope struct {
	Source string          `json:"source"`
	ID     string           `json:"id"`
	Seq    string          `json:"seq,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Err    *ErrEnvelope    `json:"err,omitempty"`
	Post   string          `json:"post,omitempty"`
}

// WithPost attaches a sibling Post id to env, signaling an attached
// binary payload the JavaScript side fetches via `ipc://post?id=<id>`.
func WithPost(env *Envelope, postID uint64) *Envelope {
	env.Post = strconv.FormatUint(postID, 10)
	return env
}

// ErrEnvelope is the `err` sub-object of a response Envelope.
type ErrEnvelope struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// newID produces the random decimal-string id every envelope carries.
func newID() string {
	return strconv.FormatUint(rand.Uint64(), 10)
}

// Success builds a data envelope; value may be any JSON-marshalable
// shape.
func Success(source string, req *Request, value any) (*Envelope, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return &Envelope{Source: source, ID: newID(), Seq: req.Seq, Data: raw}, nil
}

// Failure builds an err envelope from a kernelerr.Error.
func Failure(source string, req *Request, cause error) *Envelope {
	env := &Envelope{Source: source, ID: newID(), Seq: req.Seq}
	var kerr *kernelerr.Error
	if asErr, ok := cause.(*kernelerr.Error); ok {
		kerr = asErr
	} else {
		kerr = kernelerr.Internal("EUNKNOWN", cause.Error())
	}
	env.Err = &ErrEnvelope{
		Type:    string(kerr.Kind),
		Code:    kerr.Code,
		Message: kerr.Error(),
	}
	return env
}

// Marshal serializes an Envelope to its wire JSON form.
func Marshal(env *Envelope) ([]byte, error) {
	return json.Marshal(env)
}
