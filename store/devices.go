package store

import (
	"sort"
	"sync"

	"signage-console/entities"
)

const maxAlerts = 100

// DeviceEvent notifies subscribers of one store mutation.
type DeviceEvent struct {
	Type   string // "updated" | "removed"
	Device entities.Device
}

// DeviceStore is the canonical in-memory cache of devices. Mutation flows
// only through the frame dispatcher and the command gateway; everything
// else reads snapshots or subscribes. Merges are last-write-wins per id
// with no version check, so a stale frame can overwrite fresher state;
// consumers must treat updates as idempotent merges, not sequenced events.
type DeviceStore struct {
	mu       sync.RWMutex
	devices  map[string]entities.Device
	progress map[string]entities.ContentProgress
	alerts   []entities.DeviceAlert

	subMu   sync.Mutex
	subs    map[int]chan DeviceEvent
	nextSub int
}

func NewDeviceStore() *DeviceStore {
	return &DeviceStore{
		devices:  make(map[string]entities.Device),
		progress: make(map[string]entities.ContentProgress),
		subs:     make(map[int]chan DeviceEvent),
	}
}

// cloneReadings copies a readings map on its way in or out of the store.
// Stored maps are never mutated in place, so readers can range over a
// snapshot while later frames install fresh maps.
func cloneReadings(r map[string]float64) map[string]float64 {
	if r == nil {
		return nil
	}
	out := make(map[string]float64, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Replace resets the collection from a full REST listing.
func (s *DeviceStore) Replace(devices []entities.Device) {
	stored := make([]entities.Device, 0, len(devices))
	s.mu.Lock()
	s.devices = make(map[string]entities.Device, len(devices))
	for _, d := range devices {
		d.Readings = cloneReadings(d.Readings)
		s.devices[d.ID] = d
		stored = append(stored, d)
	}
	s.mu.Unlock()
	for _, d := range stored {
		s.notify(DeviceEvent{Type: "updated", Device: d})
	}
}

// Upsert stores a complete device record, replacing any existing one.
func (s *DeviceStore) Upsert(d entities.Device) {
	d.Readings = cloneReadings(d.Readings)
	s.mu.Lock()
	s.devices[d.ID] = d
	s.mu.Unlock()
	s.notify(DeviceEvent{Type: "updated", Device: d})
}

// Apply merges a partial update into the device keyed by its id. Fields
// absent on the wire keep their stored value. Unknown ids create a new
// entry, so a state frame can arrive before the registration listing.
func (s *DeviceStore) Apply(u entities.DeviceUpdate) {
	if u.ID == "" {
		return
	}
	s.mu.Lock()
	d := s.devices[u.ID]
	d.ID = u.ID
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.Kind != nil {
		d.Kind = *u.Kind
	}
	if u.Status != nil {
		d.Status = *u.Status
	}
	if u.Location != nil {
		d.Location = *u.Location
	}
	if u.Address != nil {
		d.Address = *u.Address
	}
	if u.SoftwareVersion != nil {
		d.SoftwareVersion = *u.SoftwareVersion
	}
	if u.Readings != nil {
		d.Readings = cloneReadings(*u.Readings)
	}
	s.devices[u.ID] = d
	s.mu.Unlock()
	s.notify(DeviceEvent{Type: "updated", Device: d})
}

// MergeReadings folds a metrics batch into the device's readings. The
// merged map is built fresh: the previously stored one may still be
// ranged over by a snapshot consumer.
func (s *DeviceStore) MergeReadings(deviceID string, metrics map[string]float64) {
	s.mu.Lock()
	d, ok := s.devices[deviceID]
	if !ok {
		s.mu.Unlock()
		return
	}
	merged := make(map[string]float64, len(d.Readings)+len(metrics))
	for k, v := range d.Readings {
		merged[k] = v
	}
	for k, v := range metrics {
		merged[k] = v
	}
	d.Readings = merged
	s.devices[deviceID] = d
	s.mu.Unlock()
	s.notify(DeviceEvent{Type: "updated", Device: d})
}

// SetProgress records the latest content playback position for a device.
func (s *DeviceStore) SetProgress(p entities.ContentProgress) {
	s.mu.Lock()
	s.progress[p.DeviceID] = p
	s.mu.Unlock()
}

// Progress returns the last known playback position for a device.
func (s *DeviceStore) Progress(deviceID string) (entities.ContentProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[deviceID]
	return p, ok
}

// AddAlert keeps the most recent alerts, oldest dropped first.
func (s *DeviceStore) AddAlert(a entities.DeviceAlert) {
	s.mu.Lock()
	s.alerts = append(s.alerts, a)
	if len(s.alerts) > maxAlerts {
		s.alerts = s.alerts[len(s.alerts)-maxAlerts:]
	}
	s.mu.Unlock()
}

// Alerts returns a copy of the retained alerts, newest last.
func (s *DeviceStore) Alerts() []entities.DeviceAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.DeviceAlert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Remove deletes a device after a deletion confirmation.
func (s *DeviceStore) Remove(id string) {
	s.mu.Lock()
	d, ok := s.devices[id]
	if ok {
		delete(s.devices, id)
		delete(s.progress, id)
	}
	s.mu.Unlock()
	if ok {
		s.notify(DeviceEvent{Type: "removed", Device: d})
	}
}

// Get returns a copy of one device.
func (s *DeviceStore) Get(id string) (entities.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[id]
	return d, ok
}

// Snapshot returns a copy of the collection sorted by id.
func (s *DeviceStore) Snapshot() []entities.Device {
	s.mu.RLock()
	out := make([]entities.Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Subscribe returns a stream of store mutations. Slow consumers lose
// events rather than blocking the dispatcher. Cancelling only detaches
// this consumer; the store and its socket stay up for the others.
func (s *DeviceStore) Subscribe() (<-chan DeviceEvent, func()) {
	ch := make(chan DeviceEvent, 64)
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *DeviceStore) notify(ev DeviceEvent) {
	s.subMu.Lock()
	for _, sub := range s.subs {
		select {
		case sub <- ev:
		default:
		}
	}
	s.subMu.Unlock()
}
