package models

import (
	"database/sql/driver"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
)

// ActivityMeta holds any additional event specific data for an activity entry.
// It is stored as a JSON blob in a single column.
type ActivityMeta map[string]interface{}

// Value implements driver.Valuer.
func (m ActivityMeta) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *ActivityMeta) Scan(value interface{}) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*m = ActivityMeta{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.Errorf("models: cannot scan %T into ActivityMeta", value)
	}
	out := ActivityMeta{}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &out); err != nil {
			return errors.WithStack(err)
		}
	}
	*m = out
	return nil
}
