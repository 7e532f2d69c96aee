package protection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuzzyMatch(t *testing.T) {
	reg := DefaultRegistry()

	for _, name := range []string{"block-break", "BLOCK-BREAK", "block_break", "blockbreak", " Block Break "} {
		f, ok := reg.FuzzyMatch(name)
		require.True(t, ok, name)
		assert.Equal(t, "block-break", f.Name())
	}

	f, ok := reg.FuzzyMatch("build-group")
	require.True(t, ok)
	_, isGroup := f.(*GroupFlag)
	assert.True(t, isGroup)

	_, ok = reg.FuzzyMatch("no-such-flag")
	assert.False(t, ok)
	_, ok = reg.FuzzyMatch("")
	assert.False(t, ok)
}

func TestRegister_Duplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewStateFlag("custom", 0, GroupMembers)))
	assert.Error(t, reg.Register(NewStateFlag("CUSTOM", 0, GroupMembers)))
	assert.Equal(t, []string{"custom", "custom-group"}, reg.Names())
}

func TestParseInput(t *testing.T) {
	reg := DefaultRegistry()
	build, _ := reg.Get("build")

	v, err := reg.ParseInput(build, "DENY")
	require.NoError(t, err)
	assert.Equal(t, Deny, v)

	v, err = reg.ParseInput(build, "none")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = reg.ParseInput(build, "maybe")
	assert.True(t, errors.Is(err, ErrInvalidFlagFormat))

	heal, _ := reg.Get("heal-amount")
	_, err = reg.ParseInput(heal, "lots")
	assert.True(t, errors.Is(err, ErrInvalidFlagFormat))

	g := build.GroupFlag()
	require.NotNil(t, g)
	v, err = g.Parse("member")
	require.NoError(t, err)
	assert.Equal(t, GroupMembers, v)
	assert.Equal(t, GroupNonMembers, g.Default())
}

func TestRegion_FlagStore(t *testing.T) {
	reg := DefaultRegistry()
	build, _ := reg.Get("build")
	greeting, _ := reg.Get("greeting")

	r := NewRegion("plot1", nil)
	r.SetFlag(build, Allow)
	r.SetFlag(greeting, "hi\nthere")
	r.SetPriority(7)
	assert.Equal(t, []string{"build", "greeting"}, r.FlagNames())
	assert.Equal(t, map[string]string{"build": "allow", "greeting": `hi\nthere`}, r.Flags())

	r.SetFlag(build, nil)
	_, ok := r.FlagValue(build)
	assert.False(t, ok)

	r.DeleteAllFlags()
	assert.Empty(t, r.FlagNames())
	assert.Equal(t, 7, r.Priority())
}

func TestSnapshotRestore(t *testing.T) {
	reg := DefaultRegistry()
	build, _ := reg.Get("build")
	heal, _ := reg.Get("heal-amount")

	parent := NewRegion("city", nil)
	r := NewRegion("plot1", parent)
	r.SetFlag(build, Deny)
	r.SetFlag(build.GroupFlag(), GroupMembers)
	r.SetFlag(heal, 3)
	r.SetPriority(12)

	snap := r.Snapshot()
	assert.Equal(t, "city", snap.Parent)

	snap.Flags["bogus"] = "x"
	back, err := reg.Restore(snap, parent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
	assert.Equal(t, 12, back.Priority())
	assert.Equal(t, parent, back.Parent())

	v, ok := back.FlagValue(build)
	require.True(t, ok)
	assert.Equal(t, Deny, v)
	v, _ = back.FlagValue(build.GroupFlag())
	assert.Equal(t, GroupMembers, v)
	v, _ = back.FlagValue(heal)
	assert.Equal(t, 3, v)
}
