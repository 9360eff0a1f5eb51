package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Compile-time interface assertions. Scan is on pointer receivers; Value is
// on value receivers.
var (
	_ sql.Scanner   = (*ConditionCounts)(nil)
	_ driver.Valuer = ConditionCounts(nil)
)

// ConditionCounts is the JSONB-backed per-condition plant-count breakdown for
// group records.
type ConditionCounts []ConditionCount

// scanJSONB scans a JSONB database value into a Go pointer. It handles nil
// values, []byte, and string representations from different drivers.
func scanJSONB(dest interface{}, value interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (cc *ConditionCounts) Scan(value interface{}) error {
	if value == nil {
		*cc = nil
		return nil
	}
	return scanJSONB(cc, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (cc ConditionCounts) Value() (driver.Value, error) {
	if cc == nil {
		return nil, nil
	}
	return json.Marshal(cc)
}

// Total returns the number of individuals across all conditions.
func (cc ConditionCounts) Total() int {
	var n int
	for _, c := range cc {
		n += c.Count
	}
	return n
}

// CountFor returns the count recorded for the named condition, or zero.
func (cc ConditionCounts) CountFor(condition string) int {
	for _, c := range cc {
		if c.Condition == condition {
			return c.Count
		}
	}
	return 0
}
