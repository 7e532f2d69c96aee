package env

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRuntime_Defaults(t *testing.T) {
	t.Setenv("ARM_FLAGGROUPS_FILE", "./configs/flaggroups.yaml")
	t.Setenv("ARM_DISABLE_AUDIT", "false")
	rt, err := LoadRuntime()
	require.NoError(t, err)
	assert.Equal(t, "./configs/flaggroups.yaml", rt.FlagGroupsFile)
	assert.False(t, rt.DisableAudit)
}

func TestLoadRuntime_Overrides(t *testing.T) {
	t.Setenv("ARM_DATA_DIR", "/srv/arm")
	t.Setenv("ARM_REGION_DB", "/srv/arm/regions.sqlite")
	t.Setenv("ARM_DISABLE_AUDIT", "true")
	t.Setenv("ARM_BACKUP_KEEP", "3")
	rt, err := LoadRuntime()
	require.NoError(t, err)
	assert.Equal(t, "/srv/arm", rt.DataDir)
	assert.Equal(t, "/srv/arm/regions.sqlite", rt.RegionDB)
	assert.True(t, rt.DisableAudit)
	assert.Equal(t, 3, rt.BackupKeep)
	assert.Equal(t, filepath.Join("/srv/arm", "backups"), rt.BackupDir())
}

func TestParse_BadValue(t *testing.T) {
	t.Setenv("ARM_DISABLE_AUDIT", "sometimes")
	_, err := LoadRuntime()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parse env:"))
}

func TestRegionDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "regions.sqlite"), Runtime{DataDir: "data"}.RegionDBPath())
	assert.Equal(t, "x.db", Runtime{DataDir: "data", RegionDB: "x.db"}.RegionDBPath())
}
