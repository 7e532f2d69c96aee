package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jhooc77/advanced-region-market/internal/config/env"
	"github.com/jhooc77/advanced-region-market/internal/config/schema"
	"github.com/jhooc77/advanced-region-market/internal/config/section"
	"github.com/jhooc77/advanced-region-market/internal/market/flaggroups"
	"github.com/jhooc77/advanced-region-market/internal/market/marketdb"
	"github.com/jhooc77/advanced-region-market/internal/market/region"
	"github.com/jhooc77/advanced-region-market/internal/market/selltype"
	"github.com/jhooc77/advanced-region-market/internal/persistence/auditlog"
	"github.com/jhooc77/advanced-region-market/internal/persistence/backup"
	"github.com/jhooc77/advanced-region-market/internal/persistence/regiondb"
	"github.com/jhooc77/advanced-region-market/internal/protection"
)

func main() {
	rt, err := env.LoadRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "validate":
			validateCmd(rt, os.Args[2:])
			return
		case "normalize":
			normalizeCmd(rt, os.Args[2:])
			return
		case "apply":
			applyCmd(rt, os.Args[2:])
			return
		case "assign":
			assignCmd(rt, os.Args[2:])
			return
		case "show":
			showCmd(rt, os.Args[2:])
			return
		case "audit":
			auditCmd(rt, os.Args[2:])
			return
		case "backups":
			backupsCmd(rt, os.Args[2:])
			return
		}
	}
	listCmd(rt, os.Args[1:])
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "[admin] ", log.LstdFlags|log.Lmicroseconds)
}

func listCmd(rt env.Runtime, args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	groupsPath := fs.String("groups", rt.FlagGroupsFile, "flag groups file")
	_ = fs.Parse(args)

	mgr := flaggroups.NewManager(protection.DefaultRegistry(), newLogger())
	if err := mgr.Load(*groupsPath); err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}
	for _, n := range mgr.Names() {
		g, _ := mgr.Get(n)
		fmt.Printf("%s\tpriority=%d\tsold=%d\tavailable=%d\n",
			g.Name(), g.Priority(), len(g.FlagSettingsSold()), len(g.FlagSettingsAvailable()))
	}
}

func validateCmd(rt env.Runtime, args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	groupsPath := fs.String("groups", rt.FlagGroupsFile, "flag groups file")
	_ = fs.Parse(args)

	doc, err := section.Load(*groupsPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}
	violations, err := schema.ValidateFlagGroups(doc)
	if err != nil {
		fmt.Fprintln(os.Stderr, "validate:", err)
		os.Exit(1)
	}
	for _, v := range violations {
		fmt.Println("schema:", v.String())
	}

	// Parse warnings (unknown flags) go to stderr through the logger.
	mgr := flaggroups.NewManager(protection.DefaultRegistry(), newLogger())
	mgr.LoadSection(doc)
	regional := region.New(region.Options{}).Replacer()
	for _, name := range mgr.Names() {
		g, _ := mgr.Get(name)
		for _, w := range g.UnknownPlaceholders(regional) {
			fmt.Println("placeholder:", w)
		}
	}
	fmt.Printf("%d groups\n", len(mgr.Names()))
	if len(violations) > 0 {
		os.Exit(1)
	}
}

func normalizeCmd(rt env.Runtime, args []string) {
	fs := flag.NewFlagSet("normalize", flag.ExitOnError)
	groupsPath := fs.String("groups", rt.FlagGroupsFile, "flag groups file")
	outPath := fs.String("out", "", "output file (optional; defaults to stdout)")
	_ = fs.Parse(args)

	mgr := flaggroups.NewManager(protection.DefaultRegistry(), newLogger())
	if err := mgr.Load(*groupsPath); err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}
	doc := mgr.ToSection()
	if *outPath != "" {
		if p, err := backup.New(rt.BackupDir(), rt.BackupKeep).Archive(*outPath); err != nil {
			fmt.Fprintln(os.Stderr, "backup:", err)
			os.Exit(1)
		} else if p != "" {
			fmt.Fprintln(os.Stderr, "previous contents saved to", p)
		}
		if err := doc.Save(*outPath); err != nil {
			fmt.Fprintln(os.Stderr, "save:", err)
			os.Exit(1)
		}
		return
	}
	b, err := doc.Marshal()
	if err != nil {
		fmt.Fprintln(os.Stderr, "marshal:", err)
		os.Exit(1)
	}
	_, _ = os.Stdout.Write(b)
}

func applyCmd(rt env.Runtime, args []string) {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	groupsPath := fs.String("groups", rt.FlagGroupsFile, "flag groups file")
	dbPath := fs.String("db", rt.RegionDBPath(), "region database")
	dataDir := fs.String("data", rt.DataDir, "runtime data directory (audit logs)")
	regionID := fs.String("region", "", "region id")
	world := fs.String("world", "", "world name for placeholders")
	groupName := fs.String("group", "", "flag group name (optional; falls back to Default/Subregion)")
	sold := fs.Bool("sold", false, "apply the sold flag list")
	owner := fs.String("owner", "", "owner name for placeholders")
	sellTypeName := fs.String("selltype", selltype.Sell.Name(), "sell|rent|contract")
	parentID := fs.String("subregion-of", "", "parent region id (makes the region a subregion)")
	resetName := fs.String("reset", flaggroups.ResetComplete.String(), "complete|non_editable")
	_ = fs.Parse(args)

	if strings.TrimSpace(*regionID) == "" {
		fmt.Fprintln(os.Stderr, "missing -region")
		os.Exit(2)
	}
	st, ok := selltype.Lookup(*sellTypeName)
	if !ok {
		fmt.Fprintln(os.Stderr, "bad -selltype:", *sellTypeName)
		os.Exit(2)
	}
	mode, err := flaggroups.ParseResetMode(*resetName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -reset:", err)
		os.Exit(2)
	}

	logger := newLogger()
	reg := protection.DefaultRegistry()
	mgr := flaggroups.NewManager(reg, logger)
	if err := mgr.Load(*groupsPath); err != nil {
		fmt.Fprintln(os.Stderr, "load groups:", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := regiondb.Open(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open db:", err)
		os.Exit(1)
	}
	defer db.Close()

	var parent *region.Region
	if *parentID != "" {
		pstore, err := restore(ctx, db, reg, *parentID, nil, logger)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load parent:", err)
			os.Exit(1)
		}
		parent = region.New(region.Options{ID: *parentID, Protected: pstore})
	}
	var parentStore *protection.Region
	if parent != nil {
		parentStore = parent.Protected()
	}
	store, err := restore(ctx, db, reg, *regionID, parentStore, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load region:", err)
		os.Exit(1)
	}

	r := region.New(region.Options{
		ID:        *regionID,
		World:     *world,
		SellType:  st,
		FlagGroup: *groupName,
		Parent:    parent,
		Sold:      *sold,
		Owner:     *owner,
		Protected: store,
	})

	var recorder region.ApplyRecorder
	if !rt.DisableAudit {
		al := auditlog.NewApplyLogger(*dataDir)
		defer al.Close()
		recorder = al
	}
	m := region.NewMarket(mgr, recorder, logger)
	rep := m.ApplyFlagGroup(r, mode)

	if err := marketdb.Save(ctx, db, r); err != nil {
		fmt.Fprintln(os.Stderr, "save region:", err)
		os.Exit(1)
	}
	fmt.Printf("applied %s (%s, sold=%t) to %s\n", rep.Group, rep.Mode, rep.Sold, *regionID)
	for _, n := range rep.Kept {
		fmt.Println("kept editable:", n)
	}
	for _, n := range rep.Skipped {
		fmt.Println("unparsable setting:", n)
	}
	printFlags(store)
}

// assignCmd moves a listed region to another flag group and rebuilds its
// flags.
func assignCmd(rt env.Runtime, args []string) {
	fs := flag.NewFlagSet("assign", flag.ExitOnError)
	groupsPath := fs.String("groups", rt.FlagGroupsFile, "flag groups file")
	dbPath := fs.String("db", rt.RegionDBPath(), "region database")
	dataDir := fs.String("data", rt.DataDir, "runtime data directory (audit logs)")
	regionID := fs.String("region", "", "region id")
	groupName := fs.String("group", "", "flag group name (empty returns to Default/Subregion)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*regionID) == "" {
		fmt.Fprintln(os.Stderr, "missing -region")
		os.Exit(2)
	}

	logger := newLogger()
	reg := protection.DefaultRegistry()
	mgr := flaggroups.NewManager(reg, logger)
	if err := mgr.Load(*groupsPath); err != nil {
		fmt.Fprintln(os.Stderr, "load groups:", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := regiondb.Open(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open db:", err)
		os.Exit(1)
	}
	defer db.Close()

	var recorder region.ApplyRecorder
	if !rt.DisableAudit {
		al := auditlog.NewApplyLogger(*dataDir)
		defer al.Close()
		recorder = al
	}
	m := region.NewMarket(mgr, recorder, logger)
	if _, err := marketdb.Load(ctx, db, reg, m, logger); err != nil {
		fmt.Fprintln(os.Stderr, "load regions:", err)
		os.Exit(1)
	}
	rep, err := m.AssignFlagGroup(*regionID, *groupName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "assign:", err)
		os.Exit(1)
	}
	r, _ := m.Get(*regionID)
	if err := marketdb.Save(ctx, db, r); err != nil {
		fmt.Fprintln(os.Stderr, "save region:", err)
		os.Exit(1)
	}
	fmt.Printf("assigned %s to %s (sold=%t)\n", rep.Group, *regionID, rep.Sold)
	printFlags(r.Protected())
}

// restore loads a stored protected region, or a fresh one when the id is
// not in the database yet.
func restore(ctx context.Context, db *regiondb.Store, reg *protection.Registry, id string, parent *protection.Region, logger *log.Logger) (*protection.Region, error) {
	snap, err := db.LoadSnapshot(ctx, id)
	if errors.Is(err, regiondb.ErrNotFound) {
		return protection.NewRegion(id, parent), nil
	}
	if err != nil {
		return nil, err
	}
	r, err := reg.Restore(snap, parent)
	if err != nil {
		// Bad flags are dropped; the region itself is usable.
		logger.Printf("restore %s: %v", id, err)
	}
	return r, nil
}

func showCmd(rt env.Runtime, args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	dbPath := fs.String("db", rt.RegionDBPath(), "region database")
	regionID := fs.String("region", "", "region id (optional; defaults to all)")
	_ = fs.Parse(args)

	db, err := regiondb.Open(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open db:", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	var snaps []protection.Snapshot
	if *regionID != "" {
		s, err := db.LoadSnapshot(ctx, *regionID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load:", err)
			os.Exit(1)
		}
		snaps = append(snaps, s)
	} else if snaps, err = db.LoadSnapshots(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}
	for _, s := range snaps {
		fmt.Printf("%s priority=%d", s.ID, s.Priority)
		if s.Parent != "" {
			fmt.Printf(" parent=%s", s.Parent)
		}
		fmt.Println()
		names := make([]string, 0, len(s.Flags))
		for n := range s.Flags {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Printf("  %s: %s\n", n, s.Flags[n])
		}
	}
}

func auditCmd(rt env.Runtime, args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", rt.DataDir, "runtime data directory")
	regionID := fs.String("region", "", "filter by region id (optional)")
	_ = fs.Parse(args)

	entries, err := auditlog.ReadEntries(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if *regionID != "" && e.Region != *regionID {
			continue
		}
		fmt.Printf("%s %s %s group=%s mode=%s sold=%t set=%v deleted=%v kept=%v skipped=%v\n",
			e.Time.Format("2006-01-02T15:04:05Z"), e.ID, e.Region, e.Group, e.Mode, e.Sold, e.Set, e.Deleted, e.Kept, e.Skipped)
	}
}

func printFlags(r *protection.Region) {
	fmt.Printf("priority: %d\n", r.Priority())
	flags := r.Flags()
	for _, n := range r.FlagNames() {
		fmt.Printf("  %s: %s\n", n, flags[n])
	}
}

func backupsCmd(rt env.Runtime, args []string) {
	fs := flag.NewFlagSet("backups", flag.ExitOnError)
	dir := fs.String("dir", rt.BackupDir(), "backup directory")
	base := fs.String("file", filepath.Base(rt.FlagGroupsFile), "backed up file name (empty for all)")
	restorePath := fs.String("restore", "", "backup file to restore (optional)")
	outPath := fs.String("out", rt.FlagGroupsFile, "restore destination")
	_ = fs.Parse(args)

	if *restorePath != "" {
		_, data, err := backup.Read(*restorePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read backup:", err)
			os.Exit(1)
		}
		if _, err := section.Parse(data); err != nil {
			fmt.Fprintln(os.Stderr, "backup is not a valid document:", err)
			os.Exit(1)
		}
		if p, err := backup.New(*dir, rt.BackupKeep).Archive(*outPath); err != nil {
			fmt.Fprintln(os.Stderr, "backup:", err)
			os.Exit(1)
		} else if p != "" {
			fmt.Fprintln(os.Stderr, "previous contents saved to", p)
		}
		if err := os.WriteFile(*outPath, data, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "write:", err)
			os.Exit(1)
		}
		fmt.Println("restored", *outPath)
		return
	}

	files, err := backup.New(*dir, 0).List(*base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, f := range files {
		h, _, err := backup.Read(f)
		if err != nil {
			fmt.Printf("%s\t%v\n", f, err)
			continue
		}
		fmt.Printf("%s\t%s\t%d bytes\t%s\n", f, h.CreatedAt, h.Size, h.SHA256[:12])
	}
}
