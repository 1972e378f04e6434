package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"applyflow-engine/internal/config"
	"applyflow-engine/internal/domain"
	"applyflow-engine/internal/events"
	"applyflow-engine/internal/httpapi"
	"applyflow-engine/internal/portal"
	"applyflow-engine/internal/portal/naukri"
	"applyflow-engine/internal/queue"
	"applyflow-engine/internal/recommend"
	"applyflow-engine/internal/run"
	"applyflow-engine/internal/scheduler"
	"applyflow-engine/internal/secrets"
	"applyflow-engine/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	dataDir := os.Getenv("APPLYFLOW_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir. A second instance would race the sqlite file
	// and double-apply on schedule ticks.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("data dir lock: %v", err)
	}
	if !locked {
		log.Fatalf("another engine instance holds %s", lock.Path())
	}
	defer lock.Unlock()

	userCfgPath, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}
	cfg, err := config.Load(userCfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config invalid (%s): %v", userCfgPath, err)
	}
	for _, wmsg := range config.Warnings(cfg) {
		log.Printf("[config] warning: %s", wmsg)
	}
	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	db, err := store.Open(filepath.Join(dataDir, "applyflow.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	profiles := &store.ProfileStore{DB: db.Pool}
	ledger := &store.ApplicationLedger{DB: db.Pool}
	recs := &store.RecommendationStore{DB: db.Pool}
	runs := &store.RunStore{DB: db.Pool}
	catalog := &store.JobCatalog{DB: db.Pool}

	hub := events.NewHub()

	// Redis is optional. With it the user lock and the schedule queue span
	// processes; without it both degrade to in-process equivalents.
	var rdb *redis.Client
	if cfg.Queue.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.Queue.RedisURL)
		if err != nil {
			log.Fatalf("redis url: %v", err)
		}
		rdb = redis.NewClient(opt)
		pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pctx).Err(); err != nil {
			log.Printf("[main] redis unreachable, falling back to in-process locks: %v", err)
			rdb = nil
		}
		pcancel()
	}

	var locks run.UserLocker
	if rdb != nil {
		locks = &run.RedisLocks{Client: rdb, TTL: cfg.RunTimeout() + 5*time.Minute}
	} else {
		locks = run.NewMemoryLocks()
	}

	sessions := func() (run.Driver, error) {
		return portal.NewSession(naukri.New(cfg.Portal.BaseURL), portal.Options{
			ActionTimeout: cfg.ActionTimeout(),
			ReadyTimeout:  cfg.ReadyTimeout(),
			ReadyInterval: cfg.ReadyInterval(),
			ReqPerSec:     cfg.Portal.RequestsPerSecond,
			Burst:         cfg.Portal.Burst,
			UserAgent:     cfg.Portal.UserAgent,
		})
	}

	exec := &run.Executor{
		Ledger:                  ledger,
		MaxPages:                cfg.Runner.MaxPages,
		MaxApplications:         cfg.Runner.MaxApplications,
		ConsecutiveFailureLimit: cfg.Runner.ConsecutiveFailureLimit,
	}

	notifier := run.NotifierFunc(func(r domain.Run) {
		hub.Publish(events.MakeEvent("", events.TypeRunFinished, 1, r.Summary()))
	})

	orch := run.NewOrchestrator(profiles, secrets.Keyring{}, runs, locks, sessions, exec, notifier, run.Options{
		RunTimeout:   cfg.RunTimeout(),
		MaxRetries:   cfg.Runner.MaxRetries,
		RetryBackoff: cfg.RetryBackoff(),
		WorkerSlots:  int64(cfg.Runner.WorkerSlots),
	})

	matcher := &recommend.Matcher{Store: recs, Catalog: catalog}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Schedule ticks flow through the redis queue when available so a
	// multi-process deployment dispatches each task once.
	if rdb != nil {
		q := queue.New(rdb, cfg.Queue.Key)
		worker := &queue.Worker{Queue: q, Orch: orch}
		go worker.Run(rootCtx)

		if cfg.Schedule.Enabled {
			sched := scheduler.New(profiles, q, cfg.Schedule.Spec)
			if err := sched.Start(rootCtx); err != nil {
				log.Fatalf("scheduler: %v", err)
			}
			defer sched.Stop()
		}
	} else if cfg.Schedule.Enabled {
		sched := scheduler.New(profiles, directEnqueuer{orch}, cfg.Schedule.Spec)
		if err := sched.Start(rootCtx); err != nil {
			log.Fatalf("scheduler: %v", err)
		}
		defer sched.Stop()
	}

	mux := httpapi.NewMux(httpapi.Deps{
		Orch:            orch,
		Profiles:        profiles,
		Applications:    ledger,
		Recommendations: recs,
		Runs:            runs,
		Catalog:         catalog,
		Matcher:         matcher,
		Hub:             hub,
		CfgVal:          &cfgVal,
		UserCfgPath:     userCfgPath,
		SetSecret:       secrets.SetPortalPassword,
	})

	handler := httpapi.Chain(mux,
		httpapi.RequestID,
		httpapi.AccessLog,
		httpapi.Recover,
		httpapi.Cors,
	)

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("[main] engine listening on http://%s (data=%s)", addr, dataDir)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Printf("[main] shutting down")

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutCtx)

	// In-flight runs finish on their own timeouts; wait so ledger writes and
	// run records land before the db closes.
	orch.Wait()
}

// directEnqueuer satisfies scheduler.Enqueuer without redis by starting the
// run in-process. AlreadyRunning on a schedule tick is routine, not an error.
type directEnqueuer struct {
	orch *run.Orchestrator
}

func (d directEnqueuer) Enqueue(ctx context.Context, userID int64) (string, error) {
	runID, err := d.orch.Start(ctx, userID)
	var already *run.AlreadyRunningError
	if errors.As(err, &already) {
		log.Printf("[main] schedule tick: user %d already running, skipped", userID)
		return "", nil
	}
	return runID, err
}
