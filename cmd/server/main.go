package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jhooc77/advanced-region-market/internal/config/env"
	"github.com/jhooc77/advanced-region-market/internal/market/flaggroups"
	"github.com/jhooc77/advanced-region-market/internal/market/marketdb"
	"github.com/jhooc77/advanced-region-market/internal/market/region"
	"github.com/jhooc77/advanced-region-market/internal/persistence/auditlog"
	"github.com/jhooc77/advanced-region-market/internal/persistence/backup"
	"github.com/jhooc77/advanced-region-market/internal/persistence/regiondb"
	"github.com/jhooc77/advanced-region-market/internal/protection"
)

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	rt, err := env.LoadRuntime()
	if err != nil {
		logger.Fatalf("%v", err)
	}

	var (
		groupsPath   = flag.String("groups", rt.FlagGroupsFile, "flag groups file")
		dbPath       = flag.String("db", rt.RegionDBPath(), "region database")
		dataDir      = flag.String("data", rt.DataDir, "runtime data directory (audit logs)")
		autosave     = flag.Duration("autosave", 30*time.Second, "flag groups autosave interval")
		reapplyStart = flag.Bool("reapply_on_start", true, "re-apply non-editable flags of every region at startup")
	)
	flag.Parse()

	reg := protection.DefaultRegistry()
	groups := flaggroups.NewManager(reg, log.New(os.Stdout, "[flaggroups] ", log.LstdFlags|log.Lmicroseconds))
	groups.SetBackup(backup.New(filepath.Join(*dataDir, "backups"), rt.BackupKeep).Hook)
	if err := groups.Load(*groupsPath); err != nil {
		logger.Fatalf("load flag groups: %v", err)
	}
	logger.Printf("loaded %d flag groups from %s", len(groups.Names()), *groupsPath)

	db, err := regiondb.Open(*dbPath)
	if err != nil {
		logger.Fatalf("open region db: %v", err)
	}
	defer db.Close()

	var recorder region.ApplyRecorder
	if !rt.DisableAudit {
		al := auditlog.NewApplyLogger(*dataDir)
		defer al.Close()
		recorder = al
	}
	market := region.NewMarket(groups, recorder, log.New(os.Stdout, "[market] ", log.LstdFlags|log.Lmicroseconds))

	ctx, cancel := signalContext()
	defer cancel()

	n, err := marketdb.Load(ctx, db, reg, market, logger)
	if err != nil {
		logger.Fatalf("load regions: %v", err)
	}
	logger.Printf("restored %d regions from %s", n, *dbPath)
	if *reapplyStart {
		reapply(ctx, db, market, logger)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		groups.Run(ctx, *groupsPath, *autosave)
	}()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			<-done
			if err := marketdb.SaveAll(context.Background(), db, market); err != nil {
				logger.Printf("save regions: %v", err)
			}
			logger.Printf("stopped")
			return
		case <-hup:
			// Unsaved in-memory edits are flushed before the file is re-read.
			if _, err := groups.SaveDirty(*groupsPath); err != nil {
				logger.Printf("save flag groups: %v", err)
				continue
			}
			if err := groups.Load(*groupsPath); err != nil {
				logger.Printf("reload flag groups: %v", err)
				continue
			}
			logger.Printf("reloaded %d flag groups", len(groups.Names()))
			reapply(ctx, db, market, logger)
		}
	}
}

func reapply(ctx context.Context, db *regiondb.Store, market *region.Market, logger *log.Logger) {
	start := time.Now()
	n := market.ReapplyAll()
	if err := marketdb.SaveAll(ctx, db, market); err != nil {
		logger.Printf("save regions: %v", err)
	}
	logger.Printf("re-applied flag groups to %d regions in %s", n, time.Since(start).Round(time.Millisecond))
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
