package proposal

import (
	"fmt"
	"maps"
	"strings"
)

// RawRecord is an untyped record as read from an input file. It is the "raw"
// side of the raw/normalized boundary: the only way to obtain a Proposal from
// a RawRecord is normalization.
type RawRecord struct {
	fields map[string]any
}

// NewRawRecord creates a RawRecord from decoded file fields.
func NewRawRecord(fields map[string]any) RawRecord {
	cp := make(map[string]any, len(fields))
	maps.Copy(cp, fields)
	return RawRecord{fields: cp}
}

// Fields returns a copy of the underlying fields.
func (r RawRecord) Fields() map[string]any {
	cp := make(map[string]any, len(r.fields))
	maps.Copy(cp, r.fields)
	return cp
}

// Has reports whether the key is present.
func (r RawRecord) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// Get returns the raw value for key.
func (r RawRecord) Get(key string) any {
	return r.fields[key]
}

// String returns the trimmed string form of the value at key, or "" when the
// key is absent, nil, or an empty string.
func (r RawRecord) String(key string) string {
	v, ok := r.fields[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// FirstString returns the first non-empty string among the given keys.
func (r RawRecord) FirstString(keys ...string) string {
	for _, key := range keys {
		if s := r.String(key); s != "" {
			return s
		}
	}
	return ""
}

// Nested returns the map value at key, or nil when the value is absent or
// not an object. Upstream feeds nest on-chain fields under "onChainInfo".
func (r RawRecord) Nested(key string) RawRecord {
	if m, ok := r.fields[key].(map[string]any); ok {
		return NewRawRecord(m)
	}
	return RawRecord{}
}
