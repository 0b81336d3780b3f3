package worker

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MaxItemLen bounds item identifier length.
const MaxItemLen = 64

// ValidateItem checks that item is a well-formed catalog identifier:
// non-empty, at most MaxItemLen bytes, lowercase letters, digits, and
// interior hyphens only.
func ValidateItem(item string) error {
	if item == "" {
		return fmt.Errorf("empty item name")
	}
	if len(item) > MaxItemLen {
		return fmt.Errorf("item name %q exceeds %d bytes", item, MaxItemLen)
	}
	if item[0] == '-' || item[len(item)-1] == '-' {
		return fmt.Errorf("item name %q has leading or trailing hyphen", item)
	}
	for i := 0; i < len(item); i++ {
		c := item[i]
		if c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' {
			continue
		}
		return fmt.Errorf("item name %q contains invalid character %q", item, c)
	}
	return nil
}

// WellFormed reports whether body looks like a catalog record: a JSON
// object carrying a numeric id and a non-empty name.
func WellFormed(body []byte) bool {
	var record struct {
		ID   *json.Number `json:"id"`
		Name string       `json:"name"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&record); err != nil {
		return false
	}
	return record.ID != nil && record.Name != ""
}
