package protection

import (
	"sort"
	"sync"
)

type flagEntry struct {
	flag  Flag
	value any
}

// Region is the flag store of one protected area.
type Region struct {
	mu       sync.RWMutex
	id       string
	parent   *Region
	priority int
	flags    map[string]flagEntry
}

func NewRegion(id string, parent *Region) *Region {
	return &Region{id: id, parent: parent, flags: map[string]flagEntry{}}
}

func (r *Region) ID() string { return r.id }

func (r *Region) Parent() *Region {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.parent
}

func (r *Region) SetParent(p *Region) {
	r.mu.Lock()
	r.parent = p
	r.mu.Unlock()
}

func (r *Region) Priority() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.priority
}

func (r *Region) SetPriority(p int) {
	r.mu.Lock()
	r.priority = p
	r.mu.Unlock()
}

func (r *Region) DeleteAllFlags() {
	r.mu.Lock()
	r.flags = map[string]flagEntry{}
	r.mu.Unlock()
}

func (r *Region) DeleteFlag(f Flag) {
	if f == nil {
		return
	}
	r.mu.Lock()
	delete(r.flags, f.Name())
	r.mu.Unlock()
}

// SetFlag stores v for f. A nil value removes the flag.
func (r *Region) SetFlag(f Flag, v any) {
	if f == nil {
		return
	}
	if v == nil {
		r.DeleteFlag(f)
		return
	}
	r.mu.Lock()
	r.flags[f.Name()] = flagEntry{flag: f, value: v}
	r.mu.Unlock()
}

func (r *Region) FlagValue(f Flag) (any, bool) {
	if f == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.flags[f.Name()]
	return e.value, ok
}

func (r *Region) FlagNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.flags))
	for n := range r.flags {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Flags returns every stored flag in its marshaled form.
func (r *Region) Flags() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.flags))
	for n, e := range r.flags {
		out[n] = e.flag.Marshal(e.value)
	}
	return out
}

// Snapshot is the persisted form of a Region.
type Snapshot struct {
	ID       string
	Parent   string
	Priority int
	Flags    map[string]string
}

func (r *Region) Snapshot() Snapshot {
	s := Snapshot{ID: r.id, Priority: r.Priority(), Flags: r.Flags()}
	if p := r.Parent(); p != nil {
		s.Parent = p.ID()
	}
	return s
}
