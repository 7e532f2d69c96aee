package flaggroups

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const groupsFile = `
Plots:
  priority: 20
  sold:
    '0':
      flag: build
      setting: allow g:members
  available:
    '0':
      flag: greeting
      setting: For sale
city.v2:
  priority: 30
broken: 7
`

func writeGroups(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flaggroups.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestManager_LoadAndLookup(t *testing.T) {
	logger, buf := bufferLogger()
	m := NewManager(testRegistry(), logger)
	require.NoError(t, m.Load(writeGroups(t, groupsFile)))

	assert.Equal(t, []string{"Plots", "city.v2"}, m.Names())
	assert.Contains(t, buf.String(), "broken")

	g, ok := m.Get("plots")
	require.True(t, ok)
	assert.Equal(t, 20, g.Priority())

	g, ok = m.Get("city.v2")
	require.True(t, ok)
	assert.Equal(t, 30, g.Priority())

	assert.Equal(t, "Plots", m.GroupFor("PLOTS", false).Name())
	assert.Equal(t, DefaultName, m.GroupFor("", false).Name())
	assert.Equal(t, SubregionName, m.GroupFor("missing", true).Name())
	assert.Equal(t, FallbackPriority, m.Default().Priority())
	assert.Empty(t, m.Subregion().FlagSettingsSold())
	assert.False(t, m.NeedsSave())
}

func TestManager_MissingFileStartsEmpty(t *testing.T) {
	logger, _ := bufferLogger()
	m := NewManager(testRegistry(), logger)
	require.NoError(t, m.Load(filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Empty(t, m.Names())
}

func TestManager_ReloadRebuilds(t *testing.T) {
	logger, _ := bufferLogger()
	m := NewManager(testRegistry(), logger)
	path := writeGroups(t, groupsFile)
	require.NoError(t, m.Load(path))
	before, _ := m.Get("plots")

	require.NoError(t, os.WriteFile(path, []byte("Other:\n  priority: 1\n"), 0o644))
	require.NoError(t, m.Load(path))
	assert.Equal(t, []string{"Other"}, m.Names())
	_, ok := m.Get("plots")
	assert.False(t, ok)
	assert.Equal(t, 20, before.Priority(), "old instances are discarded, not mutated")
}

func TestManager_SaveDirty(t *testing.T) {
	logger, _ := bufferLogger()
	reg := testRegistry()
	m := NewManager(reg, logger)
	path := writeGroups(t, groupsFile)
	require.NoError(t, m.Load(path))

	wrote, err := m.SaveDirty(path)
	require.NoError(t, err)
	assert.False(t, wrote)

	m.Put(New("Extra", 5, []FlagSettings{NewFlagSettings(mustFlag(reg, "pvp"), false, "deny", 0, nil, "")}, nil))
	assert.True(t, m.NeedsSave())

	wrote, err = m.SaveDirty(path)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.False(t, m.NeedsSave())

	again := NewManager(reg, logger)
	require.NoError(t, again.Load(path))
	assert.Equal(t, []string{"Plots", "city.v2", "Extra"}, again.Names())
	extra, ok := again.Get("extra")
	require.True(t, ok)
	require.Len(t, extra.FlagSettingsSold(), 1)
	assert.Equal(t, "pvp", extra.FlagSettingsSold()[0].Flag().Name())

	plots, _ := again.Get("plots")
	orig, _ := m.Get("plots")
	assert.Equal(t, orig.FlagSettingsSold(), plots.FlagSettingsSold())

	require.True(t, m.Remove("extra"))
	assert.False(t, m.Remove("extra"))
	assert.True(t, m.NeedsSave())
	assert.True(t, m.MarkDirty("plots"))
	assert.False(t, m.MarkDirty("nope"))
}

func TestManager_RunFlushesOnCancel(t *testing.T) {
	logger, _ := bufferLogger()
	reg := testRegistry()
	m := NewManager(reg, logger)
	path := filepath.Join(t.TempDir(), "flaggroups.yaml")
	m.Put(New("Solo", 3, nil, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, path, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.False(t, m.NeedsSave())
	again := NewManager(reg, logger)
	require.NoError(t, again.Load(path))
	assert.Equal(t, []string{"Solo"}, again.Names())
}

func TestManager_BackupHook(t *testing.T) {
	logger, buf := bufferLogger()
	m := NewManager(testRegistry(), logger)
	path := writeGroups(t, groupsFile)
	require.NoError(t, m.Load(path))

	var calls []string
	m.SetBackup(func(p string) error {
		calls = append(calls, p)
		return errors.New("disk full")
	})

	wrote, err := m.SaveDirty(path)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Empty(t, calls, "no backup without a pending write")

	m.Put(New("Extra", 5, nil, nil))
	wrote, err = m.SaveDirty(path)
	require.NoError(t, err)
	assert.True(t, wrote, "failed backup does not block the save")
	assert.Equal(t, []string{path}, calls)
	assert.Contains(t, buf.String(), "disk full")
}

func TestManager_LoadedFallbacksOverrideBuiltins(t *testing.T) {
	logger, _ := bufferLogger()
	reg := testRegistry()
	m := NewManager(reg, logger)
	builtin := m.Default()

	require.NoError(t, m.Load(writeGroups(t, `
default:
  priority: 12
  sold:
    '0':
      flag: pvp
      setting: deny
Subregion:
  priority: 4
`)))
	assert.Equal(t, 12, m.Default().Priority())
	assert.Same(t, m.Default(), m.GroupFor("", false))
	assert.Equal(t, 4, m.GroupFor("missing", true).Priority())

	require.True(t, m.Remove("Default"))
	assert.Same(t, builtin, m.Default())

	m.Put(New("DEFAULT", 40, nil, nil))
	assert.Equal(t, 40, m.Default().Priority())
}
