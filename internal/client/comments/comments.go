// Package comments reads and writes the comment list stored in a media
// item's single comment field.
//
// The field is nil, a legacy plain string, or a JSON array of entries.
// Parse accepts all three; Encode always writes the array form, or nil when
// there is nothing to store.
package comments

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is one comment. Display order is creation order.
type Entry struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

var (
	now   = time.Now
	newID = uuid.NewString
)

// Parse decodes raw. A non-array string is a legacy comment and becomes a
// single entry with a fresh id and the current time.
func Parse(raw *string) []Entry {
	if raw == nil {
		return []Entry{}
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return []Entry{}
	}

	if strings.HasPrefix(s, "[") {
		var list []Entry
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			if list == nil {
				return []Entry{}
			}
			return list
		}
	}

	return []Entry{{ID: newID(), Text: *raw, CreatedAt: now()}}
}

// Append returns list with a new entry for text at the end.
func Append(list []Entry, text string) []Entry {
	out := make([]Entry, 0, len(list)+1)
	out = append(out, list...)
	return append(out, Entry{ID: newID(), Text: text, CreatedAt: now()})
}

// Update returns list with the text of entry id replaced. Unknown ids leave
// the list unchanged.
func Update(list []Entry, id, text string) []Entry {
	out := make([]Entry, len(list))
	copy(out, list)
	for i := range out {
		if out[i].ID == id {
			t := now()
			out[i].Text = text
			out[i].UpdatedAt = &t
		}
	}
	return out
}

// Remove returns list without entry id.
func Remove(list []Entry, id string) []Entry {
	out := make([]Entry, 0, len(list))
	for _, e := range list {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the entry with the given id.
func Find(list []Entry, id string) (Entry, bool) {
	for _, e := range list {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Encode serializes list for storage. An empty list encodes to nil so the
// field is persisted as null rather than "[]".
func Encode(list []Entry) (*string, error) {
	if len(list) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
