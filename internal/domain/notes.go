package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LegacyNotes is the single notes field carried by steps written before
// timeline and postits were split. Exactly one of Text or Entries is set.
type LegacyNotes struct {
	Text    *string
	Entries []Note
}

type legacyNote struct {
	ID        string          `json:"id,omitempty"`
	Text      string          `json:"text"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
	Type      string          `json:"type,omitempty"`
}

func (n *LegacyNotes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*n = LegacyNotes{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("decoding legacy notes text: %w", err)
		}
		*n = LegacyNotes{Text: &s}
		return nil
	}

	var raw []legacyNote
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("decoding legacy notes entries: %w", err)
	}
	entries := make([]Note, 0, len(raw))
	for _, r := range raw {
		entries = append(entries, Note{
			ID:        r.ID,
			Text:      r.Text,
			Timestamp: parseLegacyTimestamp(r.Timestamp),
			Type:      NoteKind(r.Type),
		})
	}
	*n = LegacyNotes{Entries: entries}
	return nil
}

func (n LegacyNotes) MarshalJSON() ([]byte, error) {
	if n.Text != nil {
		return json.Marshal(*n.Text)
	}
	if n.Entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(n.Entries)
}

func (n *LegacyNotes) clone() *LegacyNotes {
	c := &LegacyNotes{Text: cloneString(n.Text)}
	if n.Entries != nil {
		c.Entries = append([]Note{}, n.Entries...)
	}
	return c
}

// parseLegacyTimestamp accepts RFC 3339 strings, plain dates and epoch
// milliseconds. Anything else yields the zero time.
func parseLegacyTimestamp(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}
		}
		for _, layout := range []string{time.RFC3339Nano, dateLayout} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC()
		}
		return time.Time{}
	}
	ms, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms)).UTC()
}

// legacyNoteNamespace seeds deterministic ids for notes that predate ids, so
// two clients migrating the same step agree on identity.
var legacyNoteNamespace = uuid.MustParse("6f1b7c3e-2d4a-4c59-9a77-0d6c2f0a8e41")

func legacyNoteID(stepID string, idx int, n Note) string {
	key := stepID + "|" + strconv.Itoa(idx) + "|" + string(n.Type) + "|" + n.Text
	return uuid.NewSHA1(legacyNoteNamespace, []byte(key)).String()
}

// MigrateStepNotes normalizes a step loaded from an older document:
//  1. a string notes field becomes a single timeline entry (empty string:
//     no entries), stamped with stamp;
//  2. a missing timeline is derived from untyped and timeline entries;
//  3. missing postits are derived from postit entries.
//
// Ids of migrated notes depend only on the step id, position, kind and text,
// and stamp should come from the stored document, so unsaved migrations
// agree across loads and clients. Steps that already carry timeline and
// postits are left as they are. It reports whether s changed.
func MigrateStepNotes(s *Step, stamp time.Time) bool {
	changed := false

	var legacy []Note
	if s.Notes != nil {
		if s.Notes.Text != nil {
			if text := strings.TrimSpace(*s.Notes.Text); text != "" {
				legacy = []Note{{Text: text, Timestamp: stamp, Type: NoteTimeline}}
			}
		} else {
			legacy = s.Notes.Entries
		}
		for i := range legacy {
			if legacy[i].Type == "" {
				legacy[i].Type = NoteTimeline
			}
			if legacy[i].ID == "" {
				legacy[i].ID = legacyNoteID(s.ID, i, legacy[i])
			}
		}
	}

	if s.Timeline == nil {
		s.Timeline = []Note{}
		for _, n := range legacy {
			if n.Type == "" || n.Type == NoteTimeline {
				n.Type = NoteTimeline
				s.Timeline = append(s.Timeline, n)
			}
		}
		changed = true
	}
	if s.Postits == nil {
		s.Postits = []Note{}
		for _, n := range legacy {
			if n.Type == NotePostit {
				s.Postits = append(s.Postits, n)
			}
		}
		changed = true
	}
	if s.Notes != nil {
		s.Notes = nil
		changed = true
	}

	if s.Checklist == nil {
		s.Checklist = []ChecklistItem{}
		changed = true
	}
	for i := range s.Checklist {
		item := &s.Checklist[i]
		if item.Notes == nil {
			item.Notes = []SubNote{}
			changed = true
		}
		if item.ID == "" {
			item.ID = uuid.NewSHA1(legacyNoteNamespace, []byte(s.ID+"|item|"+strconv.Itoa(i)+"|"+item.Text)).String()
			changed = true
		}
	}
	return changed
}

// MigrateProject runs MigrateStepNotes on every step of p. Legacy text notes
// take the project's last update time, or its creation time.
func MigrateProject(p *Project) bool {
	stamp := p.UpdatedAt
	if stamp.IsZero() {
		stamp = p.CreatedAt
	}
	changed := false
	for i := range p.Steps {
		if MigrateStepNotes(&p.Steps[i], stamp) {
			changed = true
		}
	}
	return changed
}
