package mapping

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Table maps canonical keys to logical buttons for one kind of controller.
type Table map[Key]Button

// Clone returns an independent copy.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Keys returns the table's keys in sorted order.
func (t Table) Keys() []Key {
	keys := make([]Key, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Marshal encodes the table as a JSON object of key -> button.
func (t Table) Marshal() ([]byte, error) {
	m := make(map[string]string, len(t))
	for k, v := range t {
		m[string(k)] = string(v)
	}
	return json.Marshal(m)
}

// ParseTable decodes a table saved by Marshal. Older key spellings are
// accepted and rewritten to canonical keys. Unknown buttons or keys are an
// error: a table is used whole or not at all.
func ParseTable(data []byte) (Table, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("decode mapping: empty table")
	}

	t := make(Table, len(raw))
	for k, v := range raw {
		key, ok := parseLegacyKey(k)
		if !ok {
			return nil, fmt.Errorf("decode mapping: invalid key %q", k)
		}
		b, ok := ParseButton(v)
		if !ok {
			return nil, fmt.Errorf("decode mapping: unknown button %q for key %q", v, k)
		}
		t[key] = b
	}
	return t, nil
}

// Store is the persistence contract: a flat string key-value store.
type Store interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
}

// StoreKey is the persistence key for a device's mapping.
func StoreKey(deviceKey string) string {
	return "gamepads/" + deviceKey
}
