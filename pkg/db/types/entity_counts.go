package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// EntityCounts stores per-entity record totals as a JSON object.
type EntityCounts map[string]int

// Total sums every entry.
func (c EntityCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

func (c *EntityCounts) Scan(src any) error {
	if src == nil {
		*c = EntityCounts{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("EntityCounts: unsupported Scan type %T", src)
	}
	if len(raw) == 0 {
		*c = EntityCounts{}
		return nil
	}

	decoded := EntityCounts{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("EntityCounts: %w", err)
	}
	*c = decoded
	return nil
}

func (c EntityCounts) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(map[string]int(c))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
