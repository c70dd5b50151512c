// Package record defines the reading-state record exchanged between
// platforms and the synchronization engine.
package record

import (
	"time"
)

// Well-known field names resolved by Field.
const (
	FieldTitle       = "title"
	FieldAuthors     = "authors"
	FieldProgress    = "progress"
	FieldLastUpdated = "lastUpdated"
	FieldPlatform    = "platform"
)

// Record is the reading state of one book on one platform. ID is expected
// to be canonical across platforms already.
type Record struct {
	ID          string         `json:"id" yaml:"id"`
	Title       string         `json:"title" yaml:"title"`
	Authors     []string       `json:"authors,omitempty" yaml:"authors,omitempty"`
	Progress    float64        `json:"progress" yaml:"progress"`
	LastUpdated time.Time      `json:"lastUpdated" yaml:"lastUpdated"`
	Platform    string         `json:"platform,omitempty" yaml:"platform,omitempty"`
	Extra       map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Field returns the value stored under name. Zero-valued well-known fields
// are reported as absent so that ADDED and REMOVED changes can be told apart
// from value changes.
func (r Record) Field(name string) (any, bool) {
	switch name {
	case FieldTitle:
		return r.Title, r.Title != ""
	case FieldAuthors:
		return r.Authors, len(r.Authors) > 0
	case FieldProgress:
		return r.Progress, true
	case FieldLastUpdated:
		return r.LastUpdated, !r.LastUpdated.IsZero()
	case FieldPlatform:
		return r.Platform, r.Platform != ""
	}
	if r.Extra == nil {
		return nil, false
	}
	v, ok := r.Extra[name]
	return v, ok
}

// WithField returns a copy of r with name set to v. It reports false, and
// returns r unchanged, when v does not fit a well-known field.
func (r Record) WithField(name string, v any) (Record, bool) {
	switch name {
	case FieldTitle, FieldPlatform:
		s, ok := v.(string)
		if !ok {
			return r, false
		}
		if name == FieldTitle {
			r.Title = s
		} else {
			r.Platform = s
		}
	case FieldAuthors:
		authors, ok := v.([]string)
		if !ok {
			return r, false
		}
		r.Authors = append([]string(nil), authors...)
	case FieldProgress:
		p, ok := v.(float64)
		if !ok {
			return r, false
		}
		r.Progress = p
	case FieldLastUpdated:
		t, ok := v.(time.Time)
		if !ok {
			return r, false
		}
		r.LastUpdated = t
	default:
		extra := make(map[string]any, len(r.Extra)+1)
		for k, val := range r.Extra {
			extra[k] = val
		}
		extra[name] = v
		r.Extra = extra
	}
	return r, true
}

// HasID reports whether the record carries an identifier.
func (r Record) HasID() bool {
	return r.ID != ""
}

// IDs returns the ids of records in order, skipping empty ones.
func IDs(records []Record) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.HasID() {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
