package mapping

import (
	"fmt"
	"log/slog"
	"math"

	"kioskpad/internal/input"
)

// Origin says where a device's active table came from.
type Origin string

const (
	OriginStored   Origin = "stored"
	OriginBuiltin  Origin = "builtin"
	OriginStandard Origin = "standard"
)

// DeviceReader gives access to the latest sampled state of a device.
// *input.Sampler implements it.
type DeviceReader interface {
	Lookup(id input.DeviceID) (input.Device, bool)
}

// Binding describes one raw input and reads its live value.
type Binding struct {
	Device input.DeviceID
	Key    Key
	Kind   input.Kind
	Index  int
	Sign   int

	devices DeviceReader
}

// ReadCurrentValue re-reads the device and returns the input's value in
// 0..1. Axis values are sign-applied, so the opposite direction reads as 0.
// A device that is gone reads as 0.
func (b Binding) ReadCurrentValue() float64 {
	if b.devices == nil {
		return 0
	}
	d, ok := b.devices.Lookup(b.Device)
	if !ok {
		return 0
	}
	v, ok := d.Value(b.Kind, b.Index)
	if !ok {
		return 0
	}
	if b.Kind == input.KindAxis && b.Sign < 0 {
		v = -v
	}
	return math.Max(0, math.Min(1, v))
}

// Mapper resolves canonical keys to logical buttons per device.
// It is not safe for concurrent use; the input service owns it.
type Mapper struct {
	store   Store
	devices DeviceReader
	logger  *slog.Logger

	tables map[string]Table
}

// NewMapper returns a mapper that persists through store (may be nil) and
// reads live values through devices.
func NewMapper(store Store, devices DeviceReader, logger *slog.Logger) *Mapper {
	return &Mapper{
		store:   store,
		devices: devices,
		logger:  logger,
		tables:  make(map[string]Table),
	}
}

// Load reads the stored table for a device key. A missing, unreadable or
// malformed entry leaves the device on its built-in or standard table; the
// failure is logged and never returned.
func (m *Mapper) Load(deviceKey string) Origin {
	if m.store != nil {
		raw, ok, err := m.store.GetItem(StoreKey(deviceKey))
		switch {
		case err != nil:
			m.logger.Warn("failed to read stored mapping", "device", deviceKey, "error", err)
		case ok:
			t, err := ParseTable([]byte(raw))
			if err != nil {
				m.logger.Warn("ignoring malformed stored mapping", "device", deviceKey, "error", err)
				break
			}
			m.tables[deviceKey] = t
			return OriginStored
		}
	}
	_, origin := m.Table(deviceKey)
	return origin
}

// Commit applies t to every device with this key and persists it. The table
// is applied even if persisting fails.
func (m *Mapper) Commit(deviceKey string, t Table) error {
	m.tables[deviceKey] = t.Clone()
	if m.store == nil {
		return nil
	}
	data, err := t.Marshal()
	if err != nil {
		return fmt.Errorf("encode mapping for %s: %w", deviceKey, err)
	}
	if err := m.store.SetItem(StoreKey(deviceKey), string(data)); err != nil {
		return fmt.Errorf("store mapping for %s: %w", deviceKey, err)
	}
	return nil
}

// Table returns the active table for a device key and where it came from.
func (m *Mapper) Table(deviceKey string) (Table, Origin) {
	if t, ok := m.tables[deviceKey]; ok {
		return t, OriginStored
	}
	if t, ok := builtinTables[deviceKey]; ok {
		return t, OriginBuiltin
	}
	return StandardLayout, OriginStandard
}

// HasTable reports whether the device key has its own (stored or built-in)
// table.
func (m *Mapper) HasTable(deviceKey string) bool {
	_, origin := m.Table(deviceKey)
	return origin != OriginStandard
}

// Resolve returns the logical button for a canonical key on a device.
func (m *Mapper) Resolve(id input.DeviceID, key Key) (Button, bool) {
	t, _ := m.Table(id.Key())
	b, ok := t[key]
	return b, ok
}

// InverseResolve finds the raw input bound to a logical button. When several
// inputs map to the same button the lowest key in sort order wins.
func (m *Mapper) InverseResolve(id input.DeviceID, button Button) (Binding, bool) {
	t, _ := m.Table(id.Key())
	for _, k := range t.Keys() {
		if t[k] == button {
			return m.Binding(id, k)
		}
	}
	return Binding{}, false
}

// Binding returns a live accessor for one canonical key of a device.
func (m *Mapper) Binding(id input.DeviceID, key Key) (Binding, bool) {
	kind, index, sign, err := ParseKey(key)
	if err != nil {
		return Binding{}, false
	}
	return Binding{
		Device:  id,
		Key:     key,
		Kind:    kind,
		Index:   index,
		Sign:    sign,
		devices: m.devices,
	}, true
}
