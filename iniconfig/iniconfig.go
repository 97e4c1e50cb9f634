// Package iniconfig implements the kernel's INI configuration dialect:
// dotted sections and subsections flatten into a single map, joined by
// "_" by default or a caller-supplied separator, and "key[]" array
// syntax concatenates repeated values with a single space.
//
// It is built on gopkg.in/ini.v1 rather than a hand-rolled line scanner,
// since ini.v1 already handles comments, quoting and continuation lines
// correctly; this package only adds the section-flattening and array
// behavior on top.
package iniconfig

import (
	"strings"

	"gopkg.in/ini.v1"
)

// DefaultSeparator joins a dotted section path's components when the
// caller doesn't supply one.
const DefaultSeparator = "_"

// Parse decodes an INI document into a flat string map using
// DefaultSeparator.
func Parse(source string) (map[string]string, error) {
	return ParseWithSeparator(source, DefaultSeparator)
}

// ParseWithSeparator decodes an INI document into a flat string map,
// joining section path components with sep.
//
// Section headers are processed in file order. A header whose name
// starts with "." (e.g. "[.c]") is a subsection of the nearest preceding
// non-subsection header: "[a.b]" followed by "[.c]" produces the dotted
// path "a.b.c", which flattens to keys prefixed "a<sep>b<sep>c<sep>".
// gopkg.in/ini.v1 itself treats section names as opaque strings, so the
// nesting is resolved here, not by the library.
func ParseWithSeparator(source string, sep string) (map[string]string, error) {
	file, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, []byte(source))
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	currentPath := ""

	for _, name := range file.SectionStrings() {
		section, err := file.GetSection(name)
		if err != nil {
			continue
		}

		path := sectionPath(name, &currentPath)
		prefix := ""
		if path != "" {
			prefix = strings.ReplaceAll(path, ".", sep) + sep
		}

		for _, key := range section.Keys() {
			mergeKey(out, prefix, key)
		}
	}

	return out, nil
}

// sectionPath resolves one section header's dotted path, updating
// currentPath as the "nearest non-subsection ancestor" tracker for
// subsequent "[.x]" headers.
func sectionPath(name string, currentPath *string) string {
	if name == ini.DefaultSection {
		return ""
	}
	if strings.HasPrefix(name, ".") {
		sub := strings.TrimPrefix(name, ".")
		if *currentPath == "" {
			return sub
		}
		return *currentPath + "." + sub
	}
	*currentPath = name
	return name
}

// mergeKey folds one ini.v1 key into out, handling the "key[]" array
// syntax: repeated "name[] = value" lines (loaded with AllowShadows) are
// concatenated with a single space.
func mergeKey(out map[string]string, prefix string, key *ini.Key) {
	name := key.Name()
	isArray := strings.HasSuffix(name, "[]")
	if isArray {
		name = strings.TrimSuffix(name, "[]")
	}

	values := key.ValueWithShadows()
	if len(values) == 0 {
		values = []string{key.Value()}
	}

	var value string
	if isArray {
		value = strings.Join(values, " ")
	} else {
		value = values[len(values)-1]
	}

	out[prefix+name] = value
}
