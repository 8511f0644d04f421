package filesem

import (
	"os"
	"time"
)

// Holder describes one current occupant of a semaphore slot.
type Holder struct {
	// PID is the holder's process id.
	PID int `msgpack:"pid"`

	// Host is the hostname that recorded the entry.
	Host string `msgpack:"host"`

	// Label optionally names the workload the slot was acquired for.
	Label string `msgpack:"label,omitempty"`

	// AcquiredAt is when the slot was taken.
	AcquiredAt time.Time `msgpack:"acquired_at"`
}

// Stale reports whether the entry belongs to a process on this host that no
// longer exists. Entries from other hosts cannot be probed and are never
// considered stale.
func (h Holder) Stale() bool {
	return h.Host == hostname() && !pidAlive(h.PID)
}

// Registry is a diagnostic sidecar file listing current slot holders.
//
// All mutations happen while the Store holds the semaphore lock, so the
// registry needs no locking of its own. Reads and writes are best effort:
// a missing or undecodable registry reads as empty, and the Store treats
// write failures as warnings rather than acquire failures. The counter
// file remains the source of truth.
type Registry struct {
	path  string
	codec Codec
}

func newRegistry(path string, codec Codec) *Registry {
	return &Registry{path: path, codec: codec}
}

// load returns the recorded holders. A missing or corrupt registry is empty.
func (r *Registry) load() []Holder {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil
	}
	var holders []Holder
	if err := r.codec.Unmarshal(data, &holders); err != nil {
		return nil
	}
	return holders
}

// save replaces the registry contents. An empty holder list removes the
// file entirely.
func (r *Registry) save(holders []Holder) error {
	if len(holders) == 0 {
		err := os.Remove(r.path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	data, err := r.codec.Marshal(holders)
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o644)
}

// add appends an entry for a freshly acquired slot.
func (r *Registry) add(h Holder) error {
	return r.save(append(r.load(), h))
}

// remove deletes the first entry recorded by pid on this host.
func (r *Registry) remove(pid int) error {
	holders := r.load()
	host := hostname()
	for i, h := range holders {
		if h.PID == pid && h.Host == host {
			return r.save(append(holders[:i], holders[i+1:]...))
		}
	}
	return nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
