package input

import "sort"

// Source reports the controllers currently attached to the host.
// Sample must not block; a host without controller support returns nil.
type Source interface {
	Sample() []Reading
}

// Poll is the result of one Sampler tick.
//
// Consumers should apply Detached, then Attached, then Events. Events for a
// freshly attached device are its baseline presses.
type Poll struct {
	Devices  []Device
	Attached []Device
	Detached []Device
	Events   []RawEvent
}

// Sampler turns Source readings into devices and raw change events.
// It is not safe for concurrent use; the input service owns it.
type Sampler struct {
	source  Source
	devices map[int]Device
}

// NewSampler returns a Sampler over src. A nil src behaves like a host with
// no controller support.
func NewSampler(src Source) *Sampler {
	return &Sampler{
		source:  src,
		devices: make(map[int]Device),
	}
}

// Sample reads the source once and diffs every device against its previous
// sample.
func (s *Sampler) Sample() Poll {
	var readings []Reading
	if s.source != nil {
		readings = s.source.Sample()
	}
	sort.SliceStable(readings, func(i, j int) bool { return readings[i].Slot < readings[j].Slot })

	var p Poll
	seen := make(map[int]bool, len(readings))

	for _, r := range readings {
		if r.Slot < 0 || seen[r.Slot] {
			continue
		}
		seen[r.Slot] = true

		cur := Normalize(r)
		prev, known := s.devices[r.Slot]
		if known && prev.ID != cur.ID {
			p.Detached = append(p.Detached, prev)
			known = false
		}

		switch {
		case !known:
			p.Attached = append(p.Attached, cur)
			p.Events = append(p.Events, Diff(nil, cur)...)
		case cur.Seq != 0 && cur.Seq == prev.Seq:
			// The backend reports no change; keep the diff baseline.
			cur = prev
		default:
			p.Events = append(p.Events, Diff(&prev, cur)...)
		}

		s.devices[r.Slot] = cur
		p.Devices = append(p.Devices, cur.clone())
	}

	var gone []int
	for slot := range s.devices {
		if !seen[slot] {
			gone = append(gone, slot)
		}
	}
	sort.Ints(gone)
	for _, slot := range gone {
		p.Detached = append(p.Detached, s.devices[slot])
		delete(s.devices, slot)
	}

	return p
}

// Lookup returns the latest sample of a device.
func (s *Sampler) Lookup(id DeviceID) (Device, bool) {
	d, ok := s.devices[id.Slot]
	if !ok || d.ID != id {
		return Device{}, false
	}
	return d, true
}

// Devices returns the latest sample of every attached device, ordered by slot.
func (s *Sampler) Devices() []Device {
	out := make([]Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Slot < out[j].ID.Slot })
	return out
}

// Peek reads the source without diffing or updating attach state. It is used
// by the background listener while regular sampling is suspended.
func (s *Sampler) Peek() []Device {
	if s.source == nil {
		return nil
	}
	readings := s.source.Sample()
	out := make([]Device, 0, len(readings))
	for _, r := range readings {
		out = append(out, Normalize(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Slot < out[j].ID.Slot })
	return out
}

// StaticSource is a Source whose readings are set by the caller. It backs
// tests and hosts that feed controller state from elsewhere.
type StaticSource struct {
	Readings []Reading
}

func (s *StaticSource) Sample() []Reading {
	out := make([]Reading, len(s.Readings))
	copy(out, s.Readings)
	return out
}
