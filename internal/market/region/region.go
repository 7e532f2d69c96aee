package region

import (
	"strconv"
	"sync"

	"github.com/jhooc77/advanced-region-market/internal/market/flaggroups"
	"github.com/jhooc77/advanced-region-market/internal/market/selltype"
	"github.com/jhooc77/advanced-region-market/internal/protection"
	"github.com/jhooc77/advanced-region-market/internal/util/stringreplacer"
)

// Region is a region offered on the market, backed by a protected region.
type Region struct {
	mu sync.RWMutex

	id        string
	world     string
	sellType  selltype.SellType
	sold      bool
	owner     string
	flagGroup string
	parent    *Region
	protected *protection.Region
	replacer  *stringreplacer.Replacer
}

type Options struct {
	ID        string
	World     string
	SellType  selltype.SellType
	FlagGroup string
	Parent    *Region
	Sold      bool
	Owner     string
	// Protected is created from ID when nil.
	Protected *protection.Region
}

func New(opts Options) *Region {
	st := opts.SellType
	if !st.Valid() {
		st = selltype.Sell
	}
	r := &Region{
		id:        opts.ID,
		world:     opts.World,
		sellType:  st,
		sold:      opts.Sold,
		owner:     opts.Owner,
		flagGroup: opts.FlagGroup,
		parent:    opts.Parent,
		protected: opts.Protected,
	}
	if r.protected == nil {
		var parentStore *protection.Region
		if opts.Parent != nil {
			parentStore = opts.Parent.Protected()
		}
		r.protected = protection.NewRegion(opts.ID, parentStore)
	}
	r.replacer = stringreplacer.New(map[string]func() string{
		"%regionid%": func() string { return r.id },
		"%world%":    func() string { return r.world },
		"%owner%":    r.Owner,
		"%selltype%": func() string { return r.SellType().Name() },
		"%issold%":   func() string { return strconv.FormatBool(r.IsSold()) },
	}, 20)
	return r
}

func (r *Region) ID() string                         { return r.id }
func (r *Region) World() string                      { return r.world }
func (r *Region) Parent() *Region                    { return r.parent }
func (r *Region) Protected() *protection.Region      { return r.protected }
func (r *Region) IsSubregion() bool                  { return r.parent != nil }
func (r *Region) FlagStore() flaggroups.FlagStore    { return r.protected }
func (r *Region) ConvertedMessage(msg string) string { return r.replacer.Replace(msg) }

// Replacer resolves the region placeholders (%regionid%, %owner%, ...).
func (r *Region) Replacer() *stringreplacer.Replacer { return r.replacer }

func (r *Region) SellType() selltype.SellType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sellType
}

func (r *Region) IsSold() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sold
}

func (r *Region) Owner() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

func (r *Region) FlagGroupName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.flagGroup
}

func (r *Region) SetFlagGroupName(name string) {
	r.mu.Lock()
	r.flagGroup = name
	r.mu.Unlock()
}

func (r *Region) setSold(sold bool, owner string) {
	r.mu.Lock()
	r.sold = sold
	r.owner = owner
	r.mu.Unlock()
}

var _ flaggroups.Region = (*Region)(nil)
