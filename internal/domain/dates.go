package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// decodeOptionalTime reads a nullable date field written by any client:
// RFC 3339 timestamps, plain YYYY-MM-DD dates or epoch milliseconds. Null
// and empty strings decode to nil.
func decodeOptionalTime(field string, raw json.RawMessage) (*time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`)) {
		return nil, nil
	}
	t := parseLegacyTimestamp(raw)
	if t.IsZero() {
		return nil, fmt.Errorf("decoding %s: unsupported time value %s", field, raw)
	}
	return &t, nil
}

func (p *Project) UnmarshalJSON(data []byte) error {
	type plain Project
	aux := struct {
		*plain
		Deadline json.RawMessage `json:"deadline,omitempty"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	deadline, err := decodeOptionalTime("deadline", aux.Deadline)
	if err != nil {
		return err
	}
	p.Deadline = deadline
	return nil
}

func (s *Step) UnmarshalJSON(data []byte) error {
	type plain Step
	aux := struct {
		*plain
		CompletedAt json.RawMessage `json:"completedAt"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	completed, err := decodeOptionalTime("completedAt", aux.CompletedAt)
	if err != nil {
		return err
	}
	s.CompletedAt = completed
	return nil
}

func (c *ChecklistItem) UnmarshalJSON(data []byte) error {
	type plain ChecklistItem
	aux := struct {
		*plain
		CompletedAt json.RawMessage `json:"completedAt"`
		Deadline    json.RawMessage `json:"deadline,omitempty"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	completed, err := decodeOptionalTime("completedAt", aux.CompletedAt)
	if err != nil {
		return err
	}
	deadline, err := decodeOptionalTime("deadline", aux.Deadline)
	if err != nil {
		return err
	}
	c.CompletedAt = completed
	c.Deadline = deadline
	return nil
}
