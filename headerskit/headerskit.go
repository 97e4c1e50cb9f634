// Package headerskit implements the Post header wire form: a
// newline-separated `Key: Value` sequence, parsed and built in both
// directions.
package headerskit

import (
	"sort"
	"strings"
)

// Parse decodes a newline-separated "Key: Value" block into a map.
// Values are trimmed. Blank lines are skipped; a line with no ":" is
// ignored.
func Parse(raw string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return out
}

// Build serializes a header map back into the newline-separated
// "Key: Value" wire form, the inverse of Parse. Keys are sorted for
// deterministic output.
func Build(headers map[string]string) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(headers[k])
	}
	return b.String()
}

// Get returns the trimmed value of key from a raw header block, or ""
// with ok=false if key is absent. Convenience for callers that only need
// one field (e.g. content-length) without parsing the whole block into a
// map.
func Get(raw, key string) (string, bool) {
	v, ok := Parse(raw)[key]
	return v, ok
}
