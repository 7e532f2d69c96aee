package flaggroups

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jhooc77/advanced-region-market/internal/market/selltype"
	"github.com/jhooc77/advanced-region-market/internal/protection"
	"github.com/jhooc77/advanced-region-market/internal/util/stringreplacer"
)

const maxReplacePasses = 20

// FlagResolver finds flags by their display name.
type FlagResolver interface {
	FuzzyMatch(name string) (protection.Flag, bool)
}

// FlagStore is the mutable flag storage of a protected region.
type FlagStore interface {
	DeleteAllFlags()
	DeleteFlag(f protection.Flag)
	SetFlag(f protection.Flag, v any)
	SetPriority(p int)
}

// Region is the market region a group is applied to.
type Region interface {
	IsSold() bool
	IsSubregion() bool
	SellType() selltype.SellType
	FlagStore() FlagStore
	ConvertedMessage(msg string) string
}

type ResetMode uint8

const (
	// ResetComplete wipes every flag before applying.
	ResetComplete ResetMode = iota + 1
	// ResetNonEditable only rewrites flags buyers cannot edit.
	ResetNonEditable
)

func (m ResetMode) String() string {
	switch m {
	case ResetComplete:
		return "complete"
	case ResetNonEditable:
		return "non_editable"
	default:
		return "unknown"
	}
}

func ParseResetMode(s string) (ResetMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "complete":
		return ResetComplete, nil
	case "non_editable", "non-editable", "noneditable":
		return ResetNonEditable, nil
	}
	return 0, fmt.Errorf("unknown reset mode %q", s)
}

// FlagGroup is a named, prioritized set of flag rules for sold and
// available regions.
type FlagGroup struct {
	name      string
	priority  int
	sold      []FlagSettings
	available []FlagSettings
	dirty     bool
	replacer  *stringreplacer.Replacer
	log       *log.Logger
}

func New(name string, priority int, sold, available []FlagSettings) *FlagGroup {
	g := &FlagGroup{
		name:      name,
		priority:  priority,
		sold:      append([]FlagSettings{}, sold...),
		available: append([]FlagSettings{}, available...),
		log:       defaultLogger(),
	}
	g.replacer = stringreplacer.New(map[string]func() string{
		"%flaggroup%": func() string { return g.name },
	}, maxReplacePasses)
	return g
}

func defaultLogger() *log.Logger {
	return log.New(os.Stderr, "[flaggroups] ", log.LstdFlags|log.Lmicroseconds)
}

func (g *FlagGroup) SetLogger(l *log.Logger) {
	if l == nil {
		l = defaultLogger()
	}
	g.log = l
}

func (g *FlagGroup) Name() string  { return g.name }
func (g *FlagGroup) Priority() int { return g.priority }

func (g *FlagGroup) FlagSettingsSold() []FlagSettings {
	return append([]FlagSettings{}, g.sold...)
}

func (g *FlagGroup) FlagSettingsAvailable() []FlagSettings {
	return append([]FlagSettings{}, g.available...)
}

// SetFlagSettings replaces both rule lists and marks the group dirty.
func (g *FlagGroup) SetFlagSettings(sold, available []FlagSettings) {
	g.sold = append([]FlagSettings{}, sold...)
	g.available = append([]FlagSettings{}, available...)
	g.dirty = true
}

// ConvertedMessage substitutes group placeholders such as %flaggroup%.
func (g *FlagGroup) ConvertedMessage(msg string) string {
	return g.replacer.Replace(msg)
}

// Dirty tracking. The owning Manager serializes access.
func (g *FlagGroup) MarkDirty()    { g.dirty = true }
func (g *FlagGroup) ClearDirty()   { g.dirty = false }
func (g *FlagGroup) IsDirty() bool { return g.dirty }
