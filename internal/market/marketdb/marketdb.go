// Package marketdb moves market regions between a region.Market and the
// sqlite region store.
package marketdb

import (
	"context"
	"log"

	"github.com/jhooc77/advanced-region-market/internal/market/region"
	"github.com/jhooc77/advanced-region-market/internal/market/selltype"
	"github.com/jhooc77/advanced-region-market/internal/persistence/regiondb"
	"github.com/jhooc77/advanced-region-market/internal/protection"
)

// Load restores every listed region into m and returns how many were
// added. Parents are restored first; unlisted parents back their
// subregions but are not added to the market.
func Load(ctx context.Context, db *regiondb.Store, reg *protection.Registry, m *region.Market, logger *log.Logger) (int, error) {
	snaps, err := db.LoadSnapshots(ctx)
	if err != nil {
		return 0, err
	}
	listings, err := db.LoadListings(ctx)
	if err != nil {
		return 0, err
	}

	l := loader{
		reg:      reg,
		log:      logger,
		snaps:    make(map[string]protection.Snapshot, len(snaps)),
		listed:   make(map[string]regiondb.Listing, len(listings)),
		built:    map[string]*region.Region{},
		visiting: map[string]bool{},
	}
	for _, s := range snaps {
		l.snaps[s.ID] = s
	}
	for _, li := range listings {
		l.listed[li.RegionID] = li
	}

	n := 0
	for _, li := range listings {
		r := l.build(li.RegionID)
		if r == nil {
			continue
		}
		if err := m.Add(r); err != nil {
			logger.Printf("restore %s: %v", li.RegionID, err)
			continue
		}
		n++
	}
	return n, nil
}

type loader struct {
	reg      *protection.Registry
	log      *log.Logger
	snaps    map[string]protection.Snapshot
	listed   map[string]regiondb.Listing
	built    map[string]*region.Region
	visiting map[string]bool
}

func (l *loader) build(id string) *region.Region {
	if r, ok := l.built[id]; ok {
		return r
	}
	snap, ok := l.snaps[id]
	if !ok {
		return nil
	}
	l.visiting[id] = true
	defer delete(l.visiting, id)

	var parent *region.Region
	if snap.Parent != "" {
		if l.visiting[snap.Parent] {
			l.log.Printf("restore %s: parent cycle through %s, dropping parent", id, snap.Parent)
		} else if parent = l.build(snap.Parent); parent == nil {
			l.log.Printf("restore %s: parent %s not stored", id, snap.Parent)
		}
	}
	var parentStore *protection.Region
	if parent != nil {
		parentStore = parent.Protected()
	}
	store, err := l.reg.Restore(snap, parentStore)
	if err != nil {
		l.log.Printf("restore %s: %v", id, err)
	}

	opts := region.Options{ID: id, Parent: parent, Protected: store}
	if li, ok := l.listed[id]; ok {
		st, ok := selltype.Lookup(li.SellType)
		if !ok {
			l.log.Printf("restore %s: unknown sell type %q, using %s", id, li.SellType, selltype.Sell)
			st = selltype.Sell
		}
		opts.World = li.World
		opts.SellType = st
		opts.Sold = li.Sold
		opts.Owner = li.Owner
		opts.FlagGroup = li.FlagGroup
	}
	r := region.New(opts)
	l.built[id] = r
	return r
}

// Save writes the protected region and listing of r.
func Save(ctx context.Context, db *regiondb.Store, r *region.Region) error {
	if err := db.SaveSnapshot(ctx, r.Protected().Snapshot()); err != nil {
		return err
	}
	return db.SaveListing(ctx, regiondb.Listing{
		RegionID:  r.ID(),
		World:     r.World(),
		SellType:  r.SellType().Name(),
		Sold:      r.IsSold(),
		Owner:     r.Owner(),
		FlagGroup: r.FlagGroupName(),
	})
}

// SaveAll writes every region of m, stopping at the first error.
func SaveAll(ctx context.Context, db *regiondb.Store, m *region.Market) error {
	for _, r := range m.Regions() {
		if err := Save(ctx, db, r); err != nil {
			return err
		}
	}
	return nil
}
