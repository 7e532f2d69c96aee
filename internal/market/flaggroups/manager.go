package flaggroups

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jhooc77/advanced-region-market/internal/config/section"
)

const (
	DefaultName      = "Default"
	SubregionName    = "Subregion"
	FallbackPriority = 10
)

// Manager owns the loaded flag groups and the two fallback groups used
// when a region names no group (or an unknown one). Loaded groups named
// Default or Subregion replace the built-in empty fallbacks.
type Manager struct {
	mu sync.RWMutex

	parser           Parser
	groups           map[string]*FlagGroup
	order            []string
	removed          bool
	builtinFallback  *FlagGroup
	builtinSubregion *FlagGroup
	fallback         *FlagGroup
	subregion        *FlagGroup
	backup           func(path string) error
	log              *log.Logger
}

func NewManager(flags FlagResolver, logger *log.Logger) *Manager {
	if logger == nil {
		logger = defaultLogger()
	}
	m := &Manager{
		parser:           Parser{Flags: flags, Logger: logger},
		groups:           map[string]*FlagGroup{},
		builtinFallback:  New(DefaultName, FallbackPriority, nil, nil),
		builtinSubregion: New(SubregionName, FallbackPriority, nil, nil),
		log:              logger,
	}
	m.builtinFallback.SetLogger(logger)
	m.builtinSubregion.SetLogger(logger)
	m.resolveFallbacksLocked()
	return m
}

func (m *Manager) resolveFallbacksLocked() {
	m.fallback = m.builtinFallback
	if g, ok := m.groups[groupKey(DefaultName)]; ok {
		m.fallback = g
	}
	m.subregion = m.builtinSubregion
	if g, ok := m.groups[groupKey(SubregionName)]; ok {
		m.subregion = g
	}
}

func groupKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Load replaces every group with the contents of path. A missing file
// leaves the manager empty.
func (m *Manager) Load(path string) error {
	root, err := section.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		m.log.Printf("flag groups file %s not found, starting empty", path)
		root = section.New()
	} else if err != nil {
		return err
	}
	m.LoadSection(root)
	return nil
}

// LoadSection rebuilds the registry from a document holding one group per
// top-level key.
func (m *Manager) LoadSection(root *section.Section) {
	groups := map[string]*FlagGroup{}
	var order []string
	for _, name := range root.Keys() {
		sec := root.Child(name)
		if sec == nil {
			m.log.Printf("flag group %s is not a mapping, skipped", name)
			continue
		}
		k := groupKey(name)
		if _, dup := groups[k]; dup {
			m.log.Printf("duplicate flag group %s, keeping the first", name)
			continue
		}
		groups[k] = m.parser.Parse(sec, name)
		order = append(order, k)
	}

	m.mu.Lock()
	m.groups = groups
	m.order = order
	m.removed = false
	m.resolveFallbacksLocked()
	m.mu.Unlock()
	m.log.Printf("loaded %d flag groups", len(order))
}

func (m *Manager) Default() *FlagGroup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fallback
}

func (m *Manager) Subregion() *FlagGroup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.subregion
}

// Get looks a group up by case-insensitive name.
func (m *Manager) Get(name string) (*FlagGroup, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[groupKey(name)]
	return g, ok
}

// GroupFor resolves the group for a region, falling back to the subregion
// or default group.
func (m *Manager) GroupFor(name string, subregion bool) *FlagGroup {
	if g, ok := m.Get(name); ok {
		return g
	}
	if subregion {
		return m.Subregion()
	}
	return m.Default()
}

func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.groups[k].Name())
	}
	return out
}

// Put adds or replaces a group and queues it for saving.
func (m *Manager) Put(g *FlagGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := groupKey(g.Name())
	if _, ok := m.groups[k]; !ok {
		m.order = append(m.order, k)
	}
	g.SetLogger(m.log)
	g.MarkDirty()
	m.groups[k] = g
	m.resolveFallbacksLocked()
}

func (m *Manager) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := groupKey(name)
	if _, ok := m.groups[k]; !ok {
		return false
	}
	delete(m.groups, k)
	for i, o := range m.order {
		if o == k {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.removed = true
	m.resolveFallbacksLocked()
	return true
}

// MarkDirty queues a group for saving.
func (m *Manager) MarkDirty(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupKey(name)]
	if ok {
		g.MarkDirty()
	}
	return ok
}

func (m *Manager) NeedsSave() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.needsSaveLocked()
}

func (m *Manager) needsSaveLocked() bool {
	if m.removed {
		return true
	}
	for _, g := range m.groups {
		if g.IsDirty() {
			return true
		}
	}
	return false
}

func (m *Manager) ToSection() *section.Section {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.toSectionLocked()
}

func (m *Manager) toSectionLocked() *section.Section {
	root := section.New()
	for _, k := range m.order {
		g := m.groups[k]
		// Names may contain dots, so set the key directly on the root.
		root.SetKey(g.Name(), g.ToSection())
	}
	return root
}

// SetBackup installs a hook that runs before SaveDirty overwrites the
// file. A failing hook is logged and the save proceeds.
func (m *Manager) SetBackup(fn func(path string) error) {
	m.mu.Lock()
	m.backup = fn
	m.mu.Unlock()
}

// SaveDirty writes the whole document to path when any group changed and
// clears the dirty flags. It reports whether a write happened.
func (m *Manager) SaveDirty(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.needsSaveLocked() {
		return false, nil
	}
	if m.backup != nil {
		if err := m.backup(path); err != nil {
			m.log.Printf("backup %s: %v", path, err)
		}
	}
	if err := m.toSectionLocked().Save(path); err != nil {
		return false, err
	}
	for _, g := range m.groups {
		g.ClearDirty()
	}
	m.removed = false
	return true, nil
}

// Run saves dirty groups every interval until ctx is done, then flushes
// once more.
func (m *Manager) Run(ctx context.Context, path string, every time.Duration) {
	if every <= 0 {
		every = 30 * time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			if _, err := m.SaveDirty(path); err != nil {
				m.log.Printf("save flag groups: %v", err)
			}
			return
		case <-t.C:
			if _, err := m.SaveDirty(path); err != nil {
				m.log.Printf("save flag groups: %v", err)
			}
		}
	}
}
