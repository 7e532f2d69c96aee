package regiondb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/jhooc77/advanced-region-market/internal/protection"
)

var ErrNotFound = errors.New("region not found")

// Store persists protected region snapshots.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS regions (
			id TEXT PRIMARY KEY,
			parent TEXT NOT NULL DEFAULT '',
			priority INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS region_flags (
			region_id TEXT NOT NULL REFERENCES regions(id) ON DELETE CASCADE,
			flag TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY(region_id, flag)
		);`,
		`CREATE TABLE IF NOT EXISTS listings (
			region_id TEXT PRIMARY KEY REFERENCES regions(id) ON DELETE CASCADE,
			world TEXT NOT NULL DEFAULT '',
			sell_type TEXT NOT NULL,
			sold INTEGER NOT NULL DEFAULT 0,
			owner TEXT NOT NULL DEFAULT '',
			flag_group TEXT NOT NULL DEFAULT ''
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot replaces the stored row and flags of one region.
func (s *Store) SaveSnapshot(ctx context.Context, snap protection.Snapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("empty region id")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO regions(id,parent,priority) VALUES(?,?,?)
		 ON CONFLICT(id) DO UPDATE SET parent=excluded.parent, priority=excluded.priority`,
		snap.ID, snap.Parent, snap.Priority); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM region_flags WHERE region_id=?`, snap.ID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO region_flags(region_id,flag,value) VALUES(?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	names := make([]string, 0, len(snap.Flags))
	for n := range snap.Flags {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if _, err := stmt.ExecContext(ctx, snap.ID, n, snap.Flags[n]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) LoadSnapshot(ctx context.Context, id string) (protection.Snapshot, error) {
	snap := protection.Snapshot{ID: id, Flags: map[string]string{}}
	err := s.db.QueryRowContext(ctx, `SELECT parent, priority FROM regions WHERE id=?`, id).
		Scan(&snap.Parent, &snap.Priority)
	if errors.Is(err, sql.ErrNoRows) {
		return protection.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return protection.Snapshot{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT flag, value FROM region_flags WHERE region_id=?`, id)
	if err != nil {
		return protection.Snapshot{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var flag, value string
		if err := rows.Scan(&flag, &value); err != nil {
			return protection.Snapshot{}, err
		}
		snap.Flags[flag] = value
	}
	return snap, rows.Err()
}

// LoadSnapshots returns every stored region ordered by id.
func (s *Store) LoadSnapshots(ctx context.Context) ([]protection.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM regions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	out := make([]protection.Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.LoadSnapshot(ctx, id)
		if err != nil {
			return out, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// DeleteRegion removes a region and its flags. Missing ids are not an error.
func (s *Store) DeleteRegion(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM regions WHERE id=?`, id)
	return err
}

// Listing is the market state of a stored region.
type Listing struct {
	RegionID  string
	World     string
	SellType  string
	Sold      bool
	Owner     string
	FlagGroup string
}

// SaveListing upserts a listing. The region row must already exist.
func (s *Store) SaveListing(ctx context.Context, l Listing) error {
	sold := 0
	if l.Sold {
		sold = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO listings(region_id,world,sell_type,sold,owner,flag_group) VALUES(?,?,?,?,?,?)
		 ON CONFLICT(region_id) DO UPDATE SET world=excluded.world, sell_type=excluded.sell_type,
		 sold=excluded.sold, owner=excluded.owner, flag_group=excluded.flag_group`,
		l.RegionID, l.World, l.SellType, sold, l.Owner, l.FlagGroup)
	return err
}

func (s *Store) LoadListings(ctx context.Context) ([]Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT region_id, world, sell_type, sold, owner, flag_group FROM listings ORDER BY region_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Listing
	for rows.Next() {
		var l Listing
		var sold int
		if err := rows.Scan(&l.RegionID, &l.World, &l.SellType, &sold, &l.Owner, &l.FlagGroup); err != nil {
			return out, err
		}
		l.Sold = sold != 0
		out = append(out, l)
	}
	return out, rows.Err()
}
