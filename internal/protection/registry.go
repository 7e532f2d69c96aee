package protection

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// Registry is the catalog of known flags.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]Flag
	names []string
}

func NewRegistry() *Registry {
	return &Registry{byKey: map[string]Flag{}}
}

// DefaultRegistry returns a registry holding the built-in flags.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, f := range builtinFlags() {
		_ = r.Register(f)
	}
	return r
}

func builtinFlags() []Flag {
	return []Flag{
		NewStateFlag("build", 0, GroupNonMembers),
		NewStateFlag("interact", 0, GroupNonMembers),
		NewStateFlag("block-break", 0, GroupAll),
		NewStateFlag("block-place", 0, GroupAll),
		NewStateFlag("use", 0, GroupAll),
		NewStateFlag("chest-access", 0, GroupAll),
		NewStateFlag("damage-animals", 0, GroupAll),
		NewStateFlag("ride", 0, GroupAll),
		NewStateFlag("pvp", 0, GroupAll),
		NewStateFlag("tnt", 0, GroupAll),
		NewStateFlag("fire-spread", 0, GroupAll),
		NewStateFlag("mob-spawning", 0, GroupAll),
		NewStateFlag("entry", Allow, GroupNonMembers),
		NewStateFlag("exit", Allow, GroupNonMembers),
		NewStateFlag("item-drop", 0, GroupAll),
		NewStateFlag("item-pickup", 0, GroupAll),
		NewStateFlag("invincible", 0, GroupAll),
		NewStringFlag("greeting", GroupAll),
		NewStringFlag("farewell", GroupAll),
		NewStringFlag("entry-deny-message", GroupAll),
		NewStringFlag("exit-deny-message", GroupAll),
		NewBooleanFlag("notify-enter", GroupAll),
		NewBooleanFlag("notify-leave", GroupAll),
		NewIntegerFlag("heal-delay", GroupAll),
		NewIntegerFlag("heal-amount", GroupAll),
		NewIntegerFlag("feed-delay", GroupAll),
	}
}

func canonicalKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// fuzzyKey drops separators so "block_break", "Block Break" and
// "blockbreak" all meet "block-break".
func fuzzyKey(name string) string {
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(canonicalKey(name))
}

// Register adds f and its qualifier flag.
func (r *Registry) Register(f Flag) error {
	if f == nil || strings.TrimSpace(f.Name()) == "" {
		return errors.New("flag must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := canonicalKey(f.Name())
	if _, ok := r.byKey[key]; ok {
		return fmt.Errorf("flag %q already registered", f.Name())
	}
	r.byKey[key] = f
	r.names = append(r.names, f.Name())
	if g := f.GroupFlag(); g != nil {
		gk := canonicalKey(g.Name())
		if _, ok := r.byKey[gk]; !ok {
			r.byKey[gk] = g
			r.names = append(r.names, g.Name())
		}
	}
	sort.Strings(r.names)
	return nil
}

func (r *Registry) Get(name string) (Flag, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byKey[canonicalKey(name)]
	return f, ok
}

// FuzzyMatch resolves a display name ignoring case and separators.
func (r *Registry) FuzzyMatch(name string) (Flag, bool) {
	if strings.TrimSpace(name) == "" {
		return nil, false
	}
	if f, ok := r.Get(name); ok {
		return f, true
	}
	want := fuzzyKey(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.names {
		if fuzzyKey(n) == want {
			return r.byKey[canonicalKey(n)], true
		}
	}
	return nil, false
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// ParseInput parses raw input for f.
func (r *Registry) ParseInput(f Flag, input string) (any, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil flag", ErrInvalidFlagFormat)
	}
	return f.Parse(input)
}

// Restore rebuilds a region from a snapshot. Unknown or unparsable flags
// are skipped and reported in the returned error; the region is still
// usable.
func (r *Registry) Restore(s Snapshot, parent *Region) (*Region, error) {
	reg := NewRegion(s.ID, parent)
	reg.SetPriority(s.Priority)
	var errs []error
	names := make([]string, 0, len(s.Flags))
	for n := range s.Flags {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		f, ok := r.Get(n)
		if !ok {
			errs = append(errs, fmt.Errorf("region %s: unknown flag %q", s.ID, n))
			continue
		}
		v, err := r.ParseInput(f, s.Flags[n])
		if err != nil {
			errs = append(errs, fmt.Errorf("region %s: %w", s.ID, err))
			continue
		}
		reg.SetFlag(f, v)
	}
	return reg, errors.Join(errs...)
}
