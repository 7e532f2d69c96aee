package marketdb

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhooc77/advanced-region-market/internal/market/flaggroups"
	"github.com/jhooc77/advanced-region-market/internal/market/region"
	"github.com/jhooc77/advanced-region-market/internal/market/selltype"
	"github.com/jhooc77/advanced-region-market/internal/persistence/regiondb"
	"github.com/jhooc77/advanced-region-market/internal/protection"
)

func newMarket(reg *protection.Registry, logger *log.Logger) *region.Market {
	return region.NewMarket(flaggroups.NewManager(reg, logger), nil, logger)
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	db, err := regiondb.Open(filepath.Join(t.TempDir(), "regions.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	reg := protection.DefaultRegistry()
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	city := region.New(region.Options{ID: "city", World: "world", SellType: selltype.Contract, FlagGroup: "towns"})
	plot := region.New(region.Options{ID: "city-1", World: "world", SellType: selltype.Rent, Parent: city, Sold: true, Owner: "alex"})
	pvp, _ := reg.Get("pvp")
	plot.Protected().SetFlag(pvp, protection.Deny)
	plot.Protected().SetPriority(7)

	m := newMarket(reg, logger)
	require.NoError(t, m.Add(plot))
	require.NoError(t, m.Add(city))
	require.NoError(t, SaveAll(ctx, db, m))

	m2 := newMarket(reg, logger)
	n, err := Load(ctx, db, reg, m2, logger)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, buf.String())

	got, ok := m2.Get("city-1")
	require.True(t, ok)
	assert.True(t, got.IsSubregion())
	assert.True(t, got.IsSold())
	assert.Equal(t, "alex", got.Owner())
	assert.Equal(t, selltype.Rent, got.SellType())
	assert.Equal(t, 7, got.Protected().Priority())
	v, _ := got.Protected().FlagValue(pvp)
	assert.Equal(t, protection.Deny, v)

	parent, ok := m2.Get("city")
	require.True(t, ok)
	assert.Same(t, parent, got.Parent(), "parent shared between market and subregion")
	assert.Same(t, parent.Protected(), got.Protected().Parent())
	assert.Equal(t, "towns", parent.FlagGroupName())
}

func TestLoad_UnlistedParentAndBadSellType(t *testing.T) {
	ctx := context.Background()
	db, err := regiondb.Open(filepath.Join(t.TempDir(), "regions.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.SaveSnapshot(ctx, protection.Snapshot{ID: "spawn"}))
	require.NoError(t, db.SaveSnapshot(ctx, protection.Snapshot{ID: "shop", Parent: "spawn"}))
	require.NoError(t, db.SaveListing(ctx, regiondb.Listing{RegionID: "shop", SellType: "lease"}))

	reg := protection.DefaultRegistry()
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	m := newMarket(reg, logger)
	n, err := Load(ctx, db, reg, m, logger)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	shop, ok := m.Get("shop")
	require.True(t, ok)
	assert.True(t, shop.IsSubregion())
	assert.Equal(t, "spawn", shop.Parent().ID())
	assert.Equal(t, selltype.Sell, shop.SellType())
	assert.Contains(t, buf.String(), `unknown sell type "lease"`)

	_, ok = m.Get("spawn")
	assert.False(t, ok)
}

func TestLoad_ParentCycle(t *testing.T) {
	ctx := context.Background()
	db, err := regiondb.Open(filepath.Join(t.TempDir(), "regions.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.SaveSnapshot(ctx, protection.Snapshot{ID: "a", Parent: "b"}))
	require.NoError(t, db.SaveSnapshot(ctx, protection.Snapshot{ID: "b", Parent: "a"}))
	require.NoError(t, db.SaveListing(ctx, regiondb.Listing{RegionID: "a", SellType: "sell"}))
	require.NoError(t, db.SaveListing(ctx, regiondb.Listing{RegionID: "b", SellType: "sell"}))

	reg := protection.DefaultRegistry()
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	m := newMarket(reg, logger)
	n, err := Load(ctx, db, reg, m, logger)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, buf.String(), "parent cycle")
}
