package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// Archive is the on-disk snapshot. Data keeps manifest order when encoded.
type Archive struct {
	Timestamp   time.Time   `json:"timestamp"`
	CreatedBy   string      `json:"created_by"`
	Description string      `json:"description"`
	Data        Collections `json:"data"`
}

// Collection holds the flattened records of one entity type.
type Collection struct {
	Entity  string
	Records []json.RawMessage
}

// Collections is an ordered entity -> records mapping.
type Collections []Collection

// Get returns the collection for entity.
func (c Collections) Get(entity string) (Collection, bool) {
	for _, col := range c {
		if col.Entity == entity {
			return col, true
		}
	}
	return Collection{}, false
}

// Counts returns the number of records per entity.
func (c Collections) Counts() map[string]int {
	out := make(map[string]int, len(c))
	for _, col := range c {
		out[col.Entity] = len(col.Records)
	}
	return out
}

func (c Collections) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col.Entity)
		if err != nil {
			return nil, err
		}
		records := col.Records
		if records == nil {
			records = []json.RawMessage{}
		}
		body, err := json.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", col.Entity, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Collections) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("data must be an object")
	}

	out := Collections{}
	seen := map[string]bool{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		if seen[key] {
			return fmt.Errorf("duplicate entity %q", key)
		}
		seen[key] = true

		var records []json.RawMessage
		if err := dec.Decode(&records); err != nil {
			return fmt.Errorf("data.%s must be an array of records: %w", key, err)
		}
		for i, rec := range records {
			trimmed := bytes.TrimSpace(rec)
			if len(trimmed) == 0 || trimmed[0] != '{' {
				return fmt.Errorf("data.%s[%d] must be an object", key, i)
			}
		}
		out = append(out, Collection{Entity: key, Records: records})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

// Encode writes the archive as JSON.
func Encode(w io.Writer, archive *Archive) error {
	if archive == nil {
		return errors.New("archive is required")
	}
	enc := json.NewEncoder(w)
	return enc.Encode(archive)
}

// Decode reads and validates an archive. Any structural problem is returned as
// an error before anything is restored.
func Decode(r io.Reader) (*Archive, error) {
	var archive Archive
	dec := json.NewDecoder(r)
	if err := dec.Decode(&archive); err != nil {
		return nil, fmt.Errorf("malformed archive: %w", err)
	}
	if archive.Data == nil {
		return nil, errors.New("malformed archive: missing data section")
	}
	return &archive, nil
}
