// Package keyvalue holds the key/value sets harvested from a map's entity
// source text, one Library per would-be entity.
package keyvalue

import (
	"strconv"
	"strings"

	"gameworld/internal/mathx"
)

// Library is an ordered collection of unique keys. A later Add of an
// existing key replaces its value but keeps the key's original position.
type Library struct {
	keys   []string
	values map[string]string
}

// New returns an empty library.
func New() *Library {
	return &Library{values: make(map[string]string)}
}

// FromPairs builds a library from alternating key, value arguments.
// A trailing key without a value is ignored.
func FromPairs(kv ...string) *Library {
	l := New()
	for i := 0; i+1 < len(kv); i += 2 {
		l.Add(kv[i], kv[i+1])
	}
	return l
}

// Add sets key to value.
func (l *Library) Add(key, value string) {
	if _, ok := l.values[key]; !ok {
		l.keys = append(l.keys, key)
	}
	l.values[key] = value
}

// Value returns the raw value of key.
func (l *Library) Value(key string) (string, bool) {
	v, ok := l.values[key]
	return v, ok
}

// Has reports whether key is present.
func (l *Library) Has(key string) bool {
	_, ok := l.values[key]
	return ok
}

// String returns the value of key, or def when absent.
func (l *Library) String(key, def string) string {
	if v, ok := l.values[key]; ok {
		return v
	}
	return def
}

// Float returns key parsed as a float, or def when absent or malformed.
func (l *Library) Float(key string, def float64) float64 {
	if v, ok := l.values[key]; ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

// Int returns key parsed as an integer, or def when absent or malformed.
// Fractional values are truncated.
func (l *Library) Int(key string, def int) int {
	if v, ok := l.values[key]; ok {
		v = strings.TrimSpace(v)
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return int(f)
		}
	}
	return def
}

// Bool treats any non-zero number, "true" or "yes" as true.
func (l *Library) Bool(key string, def bool) bool {
	v, ok := l.values[key]
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes":
		return true
	case "false", "no", "":
		return false
	}
	return l.Float(key, 0) != 0
}

// Vector parses a space separated "x y z" triple. Missing components
// keep the corresponding component of def.
func (l *Library) Vector(key string, def mathx.Vec3) mathx.Vec3 {
	v, ok := l.values[key]
	if !ok {
		return def
	}
	out := def
	for i, field := range strings.Fields(v) {
		if i > 2 {
			break
		}
		if f, err := strconv.ParseFloat(field, 64); err == nil {
			out[i] = f
		}
	}
	return out
}

// Classname is shorthand for the "classname" key.
func (l *Library) Classname() string {
	return l.values["classname"]
}

// Keys returns the keys in insertion order.
func (l *Library) Keys() []string {
	out := make([]string, len(l.keys))
	copy(out, l.keys)
	return out
}

// Len returns the number of keys.
func (l *Library) Len() int {
	return len(l.keys)
}
