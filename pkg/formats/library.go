package formats

import "strings"

// Library resolves a reference prefix (e.g. "female") to its descriptor.
type Library interface {
	Lookup(prefix string) (*Descriptor, bool)
}

// MapLibrary is an in-memory Library keyed by lower-cased descriptor name.
type MapLibrary map[string]*Descriptor

// NewMapLibrary creates a library from descriptors keyed by their names.
func NewMapLibrary(descs ...*Descriptor) MapLibrary {
	lib := make(MapLibrary, len(descs))
	for _, d := range descs {
		lib[d.Name] = d
	}
	return lib
}

// Lookup implements Library.
func (l MapLibrary) Lookup(prefix string) (*Descriptor, bool) {
	d, ok := l[strings.ToLower(prefix)]
	return d, ok
}
