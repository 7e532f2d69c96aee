package env

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Runtime holds process settings shared by the command line tools.
type Runtime struct {
	DataDir        string `env:"ARM_DATA_DIR" envDefault:"./data"`
	FlagGroupsFile string `env:"ARM_FLAGGROUPS_FILE" envDefault:"./configs/flaggroups.yaml"`
	RegionDB       string `env:"ARM_REGION_DB"`
	DisableAudit   bool   `env:"ARM_DISABLE_AUDIT" envDefault:"false"`
	BackupKeep     int    `env:"ARM_BACKUP_KEEP" envDefault:"20"`
}

// Parse loads target from environment variables.
func Parse(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// RegionDBPath returns RegionDB, or regions.sqlite under DataDir when unset.
func (r Runtime) RegionDBPath() string {
	if r.RegionDB != "" {
		return r.RegionDB
	}
	return filepath.Join(r.DataDir, "regions.sqlite")
}

// BackupDir is where flag group file backups are kept.
func (r Runtime) BackupDir() string { return filepath.Join(r.DataDir, "backups") }

func LoadRuntime() (Runtime, error) {
	var r Runtime
	if err := Parse(&r); err != nil {
		return r, err
	}
	return r, nil
}
