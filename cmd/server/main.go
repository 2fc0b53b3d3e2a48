package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"homecraft.ai/internal/persistence/indexdb"
	persistlog "homecraft.ai/internal/persistence/log"
	"homecraft.ai/internal/protocol"
	"homecraft.ai/internal/sim/catalogs"
	"homecraft.ai/internal/sim/home"
	economypkg "homecraft.ai/internal/sim/home/feature/economy"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
	homespkg "homecraft.ai/internal/sim/homes"
	sessionspkg "homecraft.ai/internal/sim/sessions"
	"homecraft.ai/internal/sim/tuning"
	"homecraft.ai/internal/transport/ws"
)

func main() {
	cfg := serverConfig{}
	flag.StringVar(&cfg.Addr, "addr", ":8080", "http listen address")
	flag.StringVar(&cfg.ConfigDir, "configs", "./configs", "config directory (items.json, maps.json, tuning.yaml)")
	flag.StringVar(&cfg.DataDir, "data", "./data", "runtime data directory")
	flag.StringVar(&cfg.TuningPath, "tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
	flag.BoolVar(&cfg.DisableDB, "disable_db", false, "keep homes in memory only")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	if err := applyEnv(&cfg); err != nil {
		logger.Fatalf("%v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg serverConfig, logger *log.Logger) error {
	cats, err := catalogs.Load(cfg.ConfigDir)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}

	tp := strings.TrimSpace(cfg.TuningPath)
	if tp == "" {
		tp = filepath.Join(cfg.ConfigDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("load tuning: %w", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if tune.ProtocolVersion != protocol.Version {
		return fmt.Errorf("tuning protocol_version %q, server speaks %q", tune.ProtocolVersion, protocol.Version)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	var (
		store    home.Store
		rows     []home.Persisted
		accounts []indexdb.Account
		db       *indexdb.SQLiteStore
	)
	if cfg.DisableDB {
		store = home.NewMemStore()
		logger.Printf("database disabled; homes are kept in memory")
	} else {
		db, err = indexdb.OpenSQLite(filepath.Join(cfg.DataDir, "db", "homes.sqlite"), newLogger("indexdb"))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer db.Close()
		if err := db.UpsertCatalogs(cfg.ConfigDir, cats, tune); err != nil {
			logger.Printf("store: upsert catalogs: %v", err)
		}
		if rows, err = db.Load(ctx); err != nil {
			return fmt.Errorf("load homes: %w", err)
		}
		if accounts, err = db.LoadAccounts(ctx); err != nil {
			return fmt.Errorf("load wallets: %w", err)
		}
		store = db
	}

	auditLog := persistlog.NewAuditLogger(cfg.DataDir)
	defer auditLog.Close()
	audit := persistlog.Tee{auditLog}
	if db != nil {
		audit = append(audit, db)
	}

	ledgerOpts := []economypkg.LedgerOption{
		economypkg.WithStartingBalance(modelpkg.Budget{Mesos: tune.StartingBalance.Mesos, Merets: tune.StartingBalance.Merets}),
	}
	if db != nil {
		ledgerOpts = append(ledgerOpts, economypkg.WithJournal(db))
	}
	ledger := economypkg.NewLedger(ledgerOpts...)
	for _, a := range accounts {
		ledger.Restore(a.ID, a.Balances, a.Items)
	}

	reg := sessionspkg.NewRegistry(newLogger("sessions"))
	mgr, err := homespkg.NewManager(homespkg.Config{
		ResidenceMapID:  cats.ResidenceMapID(),
		PlotMaps:        cats.PlotMapIDs(),
		ReturnMapID:     cats.ReturnMapID(),
		StateFile:       filepath.Join(cfg.DataDir, "state", "last_maps.json"),
		PersistDebounce: tune.PersistDebounce(),
		Instance: home.Config{
			BlockSize:      tune.BlockSize,
			KickDelay:      tune.KickGrace(),
			LiftableFinish: tune.LiftableFinish(),
			MaxLayoutSlots: tune.MaxLayoutSlots,
			InboxSize:      tune.InboxSize,
			Logger:         newLogger("home"),
			Audit:          audit,
		},
		Logger: newLogger("homes"),
	}, home.Deps{
		Store:     store,
		Notifier:  reg,
		Economy:   ledger,
		Maps:      cats,
		Items:     cats,
		Directory: reg,
	})
	if err != nil {
		return fmt.Errorf("homes: %w", err)
	}
	if err := mgr.LoadHomes(rows); err != nil {
		return fmt.Errorf("homes: %w", err)
	}
	logger.Printf("loaded %d homes and %d wallets; residence map %d, plot maps %v", len(rows), len(accounts), cats.ResidenceMapID(), cats.PlotMapIDs())

	wsSrv := ws.NewServer(ws.Config{
		QueueSize:         tune.SessionQueueSize,
		RequestsPerSecond: tune.RateLimits.RequestsPerSecond,
		Burst:             tune.RateLimits.Burst,
		Digests: protocol.CatalogDigests{
			ItemsDigest:  cats.Items.Digest,
			MapsDigest:   cats.Maps.Digest,
			TuningDigest: tuningDigest(tune),
		},
		Accounts: ledger,
	}, mgr, reg, newLogger("ws"))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		writeMetrics(rw, mgr, reg, db)
	})
	if cfg.AdminHTTP {
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			homes, instances, sessions := mgr.Stats()
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(map[string]any{
				"homes":     homes,
				"instances": instances,
				"sessions":  sessions,
				"store":     db.Stats(),
			})
		})
	} else {
		logger.Printf("admin endpoints disabled (HOMECRAFT_ENABLE_ADMIN_HTTP=false)")
	}
	if cfg.PprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mgr.Run(gctx) })
	g.Go(func() error {
		logger.Printf("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		return srv.Shutdown(sctx)
	})
	err = g.Wait()

	fctx, fcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer fcancel()
	if ferr := mgr.FlushState(fctx); ferr != nil {
		logger.Printf("flush state: %v", ferr)
	}
	if db != nil {
		if ferr := db.Flush(fctx); ferr != nil {
			logger.Printf("flush store: %v", ferr)
		}
	}
	logger.Printf("stopped")
	return err
}

func newLogger(component string) *log.Logger {
	return log.New(os.Stdout, "["+component+"] ", log.LstdFlags|log.Lmicroseconds)
}

func tuningDigest(t tuning.Tuning) string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func writeMetrics(rw http.ResponseWriter, mgr *homespkg.Manager, reg *sessionspkg.Registry, db *indexdb.SQLiteStore) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	homes, instances, placed := mgr.Stats()

	fmt.Fprintf(rw, "# HELP homecraft_homes Homes known to the server.\n")
	fmt.Fprintf(rw, "# TYPE homecraft_homes gauge\n")
	fmt.Fprintf(rw, "homecraft_homes %d\n", homes)
	fmt.Fprintf(rw, "# HELP homecraft_instances Running map instances.\n")
	fmt.Fprintf(rw, "# TYPE homecraft_instances gauge\n")
	fmt.Fprintf(rw, "homecraft_instances %d\n", instances)
	fmt.Fprintf(rw, "# HELP homecraft_sessions Connected sessions.\n")
	fmt.Fprintf(rw, "# TYPE homecraft_sessions gauge\n")
	fmt.Fprintf(rw, "homecraft_sessions{state=%q} %d\n", "connected", reg.Len())
	fmt.Fprintf(rw, "homecraft_sessions{state=%q} %d\n", "placed", placed)

	if db == nil {
		return
	}
	s := db.Stats()
	fmt.Fprintf(rw, "# HELP homecraft_store_queue_depth Pending store writes.\n")
	fmt.Fprintf(rw, "# TYPE homecraft_store_queue_depth gauge\n")
	fmt.Fprintf(rw, "homecraft_store_queue_depth %d\n", s.QueueDepth)
	fmt.Fprintf(rw, "# HELP homecraft_store_queue_full_total Writes that waited on a full queue.\n")
	fmt.Fprintf(rw, "# TYPE homecraft_store_queue_full_total counter\n")
	fmt.Fprintf(rw, "homecraft_store_queue_full_total %d\n", s.QueueFullTotal)
	fmt.Fprintf(rw, "# HELP homecraft_store_write_errors_total Failed store writes.\n")
	fmt.Fprintf(rw, "# TYPE homecraft_store_write_errors_total counter\n")
	fmt.Fprintf(rw, "homecraft_store_write_errors_total %d\n", s.WriteErrTotal)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
