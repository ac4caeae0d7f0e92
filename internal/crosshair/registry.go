package crosshair

import (
	"sort"
	"sync"
	"time"
	"weak"
)

// Registry maps chart keys to non-owning handles of live overlays. An entry
// goes stale when its overlay is closed or collected; stale entries are
// skipped on read and removed only by explicit eviction.
type Registry struct {
	mu      sync.RWMutex
	entries map[ChartKey]*registryEntry
}

type registryEntry struct {
	ref           weak.Pointer[Overlay]
	pendingScroll time.Time
}

func (e *registryEntry) resolve() (*Overlay, bool) {
	o := e.ref.Value()
	if o == nil || o.Closed() {
		return nil, false
	}
	return o, true
}

// Peer is one live registry entry yielded by Matching.
type Peer struct {
	Key     ChartKey
	Overlay *Overlay
}

// EntryInfo describes a registry entry for listing.
type EntryInfo struct {
	Key           ChartKey   `json:"key"`
	InstanceID    string     `json:"instance_id,omitempty"`
	Alive         bool       `json:"alive"`
	PendingScroll *time.Time `json:"pending_scroll,omitempty"`
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[ChartKey]*registryEntry)}
}

// Register replaces any entry for key with a weak handle to o.
func (r *Registry) Register(key ChartKey, o *Overlay) {
	r.mu.Lock()
	r.entries[key] = &registryEntry{ref: weak.Make(o)}
	r.mu.Unlock()
}

// Lookup returns the overlay registered under key while it is alive.
func (r *Registry) Lookup(key ChartKey) (*Overlay, bool) {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return e.resolve()
}

// Matching snapshots the live overlays in scope of self, excluding self.
func (r *Registry) Matching(self *Overlay, scope Scope) []Peer {
	var source ChartKey
	if self != nil {
		source = self.Key()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	peers := make([]Peer, 0, len(r.entries))
	for key, e := range r.entries {
		o, ok := e.resolve()
		if !ok || o == self {
			continue
		}
		if self != nil && !scope.Matches(source, key) {
			continue
		}
		peers = append(peers, Peer{Key: key, Overlay: o})
	}
	sort.Slice(peers, func(i, j int) bool {
		return peers[i].Key.String() < peers[j].Key.String()
	})
	return peers
}

// Evict removes the entry for key.
func (r *Registry) Evict(key ChartKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; !ok {
		return false
	}
	delete(r.entries, key)
	return true
}

// Unregister removes o's entry unless another overlay has since taken its key.
func (r *Registry) Unregister(o *Overlay) bool {
	return r.evictIf(o.Key(), o)
}

// evictIf removes the entry for key only while it still refers to o, so an
// overlay registered after a fault is left untouched.
func (r *Registry) evictIf(key ChartKey, o *Overlay) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return false
	}
	if cur := e.ref.Value(); cur != nil && cur != o {
		return false
	}
	delete(r.entries, key)
	return true
}

// SetPendingScroll records the time a chart has been asked to scroll to.
func (r *Registry) SetPendingScroll(key ChartKey, t time.Time) {
	r.mu.Lock()
	if e, ok := r.entries[key]; ok {
		e.pendingScroll = t
	}
	r.mu.Unlock()
}

// PendingScroll returns the outstanding scroll target for key, if any.
func (r *Registry) PendingScroll(key ChartKey) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok || e.pendingScroll.IsZero() {
		return time.Time{}, false
	}
	return e.pendingScroll, true
}

func (r *Registry) ClearPendingScroll(key ChartKey) {
	r.SetPendingScroll(key, time.Time{})
}

// Len counts entries, stale ones included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot lists every entry sorted by key.
func (r *Registry) Snapshot() []EntryInfo {
	r.mu.RLock()
	out := make([]EntryInfo, 0, len(r.entries))
	for key, e := range r.entries {
		info := EntryInfo{Key: key}
		if o, ok := e.resolve(); ok {
			info.Alive = true
			info.InstanceID = o.ID()
		}
		if !e.pendingScroll.IsZero() {
			t := e.pendingScroll
			info.PendingScroll = &t
		}
		out = append(out, info)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}
