package region

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/jhooc77/advanced-region-market/internal/market/flaggroups"
)

var (
	ErrUnknownRegion = errors.New("unknown region")
	ErrAlreadySold   = errors.New("region already sold")
	ErrNotSold       = errors.New("region not sold")
	ErrUnknownGroup  = errors.New("unknown flag group")
)

// ApplyRecorder receives a report for every flag group application.
type ApplyRecorder interface {
	RecordApply(regionID string, rep flaggroups.ApplyReport) error
}

// Market owns the regions and re-applies their flag groups on state
// transitions.
type Market struct {
	mu      sync.RWMutex
	regions map[string]*Region
	order   []string

	groups   *flaggroups.Manager
	recorder ApplyRecorder
	log      *log.Logger
}

func NewMarket(groups *flaggroups.Manager, recorder ApplyRecorder, logger *log.Logger) *Market {
	if logger == nil {
		logger = log.New(os.Stderr, "[market] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Market{
		regions:  map[string]*Region{},
		groups:   groups,
		recorder: recorder,
		log:      logger,
	}
}

func (m *Market) Add(r *Region) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.regions[r.ID()]; ok {
		return fmt.Errorf("region %s already exists", r.ID())
	}
	m.regions[r.ID()] = r
	m.order = append(m.order, r.ID())
	return nil
}

func (m *Market) Get(id string) (*Region, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.regions[id]
	return r, ok
}

func (m *Market) Regions() []*Region {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Region, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.regions[id])
	}
	return out
}

// ApplyFlagGroup applies the region's flag group, falling back to the
// default or subregion group.
func (m *Market) ApplyFlagGroup(r *Region, mode flaggroups.ResetMode) flaggroups.ApplyReport {
	g := m.groups.GroupFor(r.FlagGroupName(), r.IsSubregion())
	rep := g.ApplyToRegion(r, mode)
	if m.recorder != nil {
		if err := m.recorder.RecordApply(r.ID(), rep); err != nil {
			m.log.Printf("record apply %s: %v", r.ID(), err)
		}
	}
	return rep
}

func (m *Market) Sell(id, owner string) (flaggroups.ApplyReport, error) {
	r, ok := m.Get(id)
	if !ok {
		return flaggroups.ApplyReport{}, fmt.Errorf("%w: %s", ErrUnknownRegion, id)
	}
	if r.IsSold() {
		return flaggroups.ApplyReport{}, fmt.Errorf("%w: %s", ErrAlreadySold, id)
	}
	r.setSold(true, owner)
	return m.ApplyFlagGroup(r, flaggroups.ResetComplete), nil
}

func (m *Market) Unsell(id string) (flaggroups.ApplyReport, error) {
	r, ok := m.Get(id)
	if !ok {
		return flaggroups.ApplyReport{}, fmt.Errorf("%w: %s", ErrUnknownRegion, id)
	}
	if !r.IsSold() {
		return flaggroups.ApplyReport{}, fmt.Errorf("%w: %s", ErrNotSold, id)
	}
	r.setSold(false, "")
	return m.ApplyFlagGroup(r, flaggroups.ResetComplete), nil
}

// AssignFlagGroup moves a region to another flag group and rebuilds its
// flags from it. An empty name returns the region to the Default or
// Subregion group.
func (m *Market) AssignFlagGroup(id, group string) (flaggroups.ApplyReport, error) {
	r, ok := m.Get(id)
	if !ok {
		return flaggroups.ApplyReport{}, fmt.Errorf("%w: %s", ErrUnknownRegion, id)
	}
	if group != "" {
		if _, ok := m.groups.Get(group); !ok {
			return flaggroups.ApplyReport{}, fmt.Errorf("%w: %s", ErrUnknownGroup, group)
		}
	}
	r.SetFlagGroupName(group)
	return m.ApplyFlagGroup(r, flaggroups.ResetComplete), nil
}

// ReapplyAll refreshes non-editable flags of every region, typically after
// the flag groups were reloaded. Buyer edits of editable flags survive.
func (m *Market) ReapplyAll() int {
	regions := m.Regions()
	for _, r := range regions {
		m.ApplyFlagGroup(r, flaggroups.ResetNonEditable)
	}
	return len(regions)
}
