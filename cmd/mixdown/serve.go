package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/mixdown/internal/cache"
	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/dashboard"
	"github.com/efebarandurmaz/mixdown/internal/fingerprint"
	"github.com/efebarandurmaz/mixdown/internal/graphstore"
	graphneo4j "github.com/efebarandurmaz/mixdown/internal/graphstore/neo4j"
	"github.com/efebarandurmaz/mixdown/internal/history"
	"github.com/efebarandurmaz/mixdown/internal/observability"
	"github.com/efebarandurmaz/mixdown/internal/qualitygate"
	"github.com/efebarandurmaz/mixdown/internal/secrets"
	"github.com/efebarandurmaz/mixdown/internal/server"
	"github.com/efebarandurmaz/mixdown/internal/verify"
)

func newServeCmd() *cobra.Command {
	var interval time.Duration

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard server with periodic corpus verification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), interval)
		},
	}
	serveCmd.Flags().DurationVar(&interval, "interval", 0, "Re-verify the corpus at this interval (0: once at startup)")
	return serveCmd
}

func runServe(ctx context.Context, interval time.Duration) error {
	reg := catalog.Builtin()

	graceful := server.NewGracefulServer(
		&server.HealthConfig{Version: version},
		server.DefaultShutdownConfig(),
	)

	cacheStore, err := openCache(ctx)
	if err != nil {
		return err
	}

	hist, err := history.NewStore(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}

	var graphRepo graphstore.Repository
	if cfg.Graph.Enabled {
		password := secrets.GetOrDefault(ctx, string(secrets.SecretGraphPassword), cfg.Graph.Password)
		repo, err := graphneo4j.New(ctx, cfg.Graph.URI, cfg.Graph.Username, password)
		if err != nil {
			slog.Warn("graph store unavailable", "uri", cfg.Graph.URI, "error", err)
		} else {
			graphRepo = repo
			syncCompositions(ctx, reg, graphRepo)
		}
	}

	graceful.Health.RegisterCheck("registry", server.RegistryHealthChecker(reg.Len))
	graceful.Health.RegisterCheck("cache", server.CacheHealthChecker(cfg.Cache.Backend, func(ctx context.Context) error {
		_, _, err := cacheStore.Get(ctx, "healthcheck")
		return err
	}))
	graceful.Health.RegisterCheck("history", server.DatabaseHealthChecker(func(ctx context.Context) error {
		_, err := hist.Summarize(ctx)
		return err
	}))
	graceful.Health.RegisterCheck("snapshots", server.SnapshotDirHealthChecker(cfg.Snapshot.Dir))
	graceful.Health.RegisterCheck("memory", server.MemoryHealthChecker(1<<30))

	dash := dashboard.New(&dashboard.Config{
		ListenAddr: cfg.Server.Addr,
		Scenarios:  func() []dashboard.ScenarioSummary { return scenarioSummaries(reg) },
	})
	go func() {
		if err := dash.Server.Start(); err != nil {
			slog.Error("dashboard server stopped", "error", err)
		}
	}()

	var metricsSrv *http.Server
	if cfg.Observability.MetricsAddr != "" {
		metricsSrv = &http.Server{Addr: cfg.Observability.MetricsAddr, Handler: metricsMux()}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	loopCtx, stopLoop := context.WithCancel(ctx)

	hooks := []server.ShutdownHook{
		server.HTTPServerShutdownHook("dashboard", dash.Server.Stop),
		server.CacheShutdownHook(cacheStore.Close),
		server.DatabaseShutdownHook(hist.Close),
		server.AuditLoggerShutdownHook(observability.Audit().Close),
	}
	if metricsSrv != nil {
		hooks = append(hooks, server.HTTPServerShutdownHook("metrics", metricsSrv.Shutdown))
	}
	if graphRepo != nil {
		hooks = append(hooks, server.GraphStoreShutdownHook(graphRepo.Close))
	}
	for _, h := range hooks {
		graceful.RegisterHook(h.Name, h.Priority, h.Fn)
	}
	graceful.RegisterHook("verify-loop", 8, func(ctx context.Context) error {
		stopLoop()
		return nil
	})

	exec := cache.NewExecutor(cacheStore, reg, cfg.Cache.TTL)
	go verificationLoop(loopCtx, reg, dash.Emitter, hist, exec, interval)

	if err := graceful.Start(cfg.Server.HealthAddr); err != nil {
		stopLoop()
		return fmt.Errorf("starting health server: %w", err)
	}
	slog.Info("serving",
		"dashboard", cfg.Server.Addr,
		"health", cfg.Server.HealthAddr,
		"scenarios", reg.Len(),
		"interval", interval)

	graceful.Wait()
	return nil
}

func openCache(ctx context.Context) (cache.Store, error) {
	if cfg.Cache.Backend != "redis" {
		return cache.NewMemoryStore(), nil
	}
	password := secrets.GetOrDefault(ctx, string(secrets.SecretCachePassword), cfg.Cache.Password)
	store, err := cache.DialRedis(ctx, cfg.Cache.Addr, password, cfg.Cache.DB)
	if err != nil {
		slog.Warn("redis unavailable, using in-memory cache", "addr", cfg.Cache.Addr, "error", err)
		return cache.NewMemoryStore(), nil
	}
	return store, nil
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	return mux
}

func scenarioSummaries(reg *catalog.Registry) []dashboard.ScenarioSummary {
	scenarios := reg.All()
	out := make([]dashboard.ScenarioSummary, 0, len(scenarios))
	for _, s := range scenarios {
		summary := dashboard.ScenarioSummary{
			Name:        s.Name,
			Description: s.Description,
			Nodes:       len(s.Declarations),
			Pinned:      len(s.WantOrder) > 0 || s.WantTrace != "",
		}
		out = append(out, summary)
	}
	return out
}

// syncCompositions pushes every scenario's composition graph to the graph
// store so supertype and subtype queries see the current corpus.
func syncCompositions(ctx context.Context, reg *catalog.Registry, repo graphstore.Repository) {
	for _, s := range reg.All() {
		g, err := s.Graph()
		if err != nil {
			slog.Warn("skipping graph sync for invalid scenario", "scenario", s.Name, "error", err)
			continue
		}
		if err := repo.StoreComposition(ctx, s.Name, g); err != nil {
			slog.Warn("graph sync failed", "scenario", s.Name, "error", err)
		}
	}
}

func verificationLoop(ctx context.Context, reg *catalog.Registry, emitter *dashboard.Emitter, hist *history.Store, exec *cache.Executor, interval time.Duration) {
	runOnce := func() {
		if err := dashboardVerification(ctx, reg, emitter, hist, exec); err != nil {
			slog.Warn("corpus verification failed", "error", err)
		}
	}

	runOnce()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// dashboardVerification runs one full verification pass, emitting phase
// events so connected dashboard clients can watch it progress.
func dashboardVerification(ctx context.Context, reg *catalog.Registry, emitter *dashboard.Emitter, hist *history.Store, exec *cache.Executor) error {
	runID := uuid.NewString()
	names := reg.Names()
	emitter.RunStarted(runID, "corpus verification", "server", len(names))

	emitter.PhaseStarted(runID, dashboard.PhaseExecute)
	executed := dashboard.PhaseMetrics{Items: len(names)}
	for _, name := range names {
		if _, err := exec.Execute(ctx, name); err != nil {
			emitter.Log(runID, string(dashboard.PhaseExecute), "error", fmt.Sprintf("%s: %v", name, err))
			executed.Failed++
			continue
		}
		executed.Passed++
	}
	emitter.PhaseCompleted(runID, dashboard.PhaseExecute, executed)

	emitter.PhaseStarted(runID, dashboard.PhaseReplay)
	fixtures := verify.Pinned(reg)
	report := verify.Run(reg, fixtures, nil)
	emitter.PhaseCompleted(runID, dashboard.PhaseReplay, dashboard.PhaseMetrics{
		Items:  report.FixtureCount,
		Passed: report.PassCount,
		Failed: report.FailCount,
	})

	emitter.PhaseStarted(runID, dashboard.PhaseGates)
	result := qualitygate.BuildPipeline(gateConfig()).Run(qualitygate.ContextFromReport(report, reg))
	if result.Status == qualitygate.GateFailed {
		emitter.PhaseFailed(runID, dashboard.PhaseGates, fmt.Errorf("%d of %d gates failed", result.FailedCount, len(result.Gates)))
	} else {
		emitter.PhaseCompleted(runID, dashboard.PhaseGates, dashboard.PhaseMetrics{
			Items:   len(result.Gates),
			Passed:  result.PassedCount,
			Failed:  result.FailedCount,
			Skipped: result.SkippedCount,
		})
	}

	var snapshotID string
	if report.Pass && result.Status != qualitygate.GateFailed {
		emitter.PhaseStarted(runID, dashboard.PhaseSnapshot)
		id, err := captureSnapshot(ctx, reg, "server", "", "")
		if err != nil {
			emitter.PhaseFailed(runID, dashboard.PhaseSnapshot, err)
		} else {
			snapshotID = id
			emitter.PhaseCompleted(runID, dashboard.PhaseSnapshot, dashboard.PhaseMetrics{Items: 1, Passed: 1})
		}
	}

	hashes, err := fingerprint.ScenarioHashes(reg)
	if err != nil {
		hashes = nil
	}
	run, results := history.FromReport(report, "server", hashes)
	run.RunID = runID
	for i := range results {
		results[i].RunID = runID
	}
	if err := hist.SaveRun(ctx, run, results); err != nil {
		slog.Warn("recording run history failed", "error", err)
	}

	emitter.RunCompleted(runID, report.FixtureCount, report.PassCount, report.FailCount, string(result.Status), snapshotID)

	if !report.Pass {
		return fmt.Errorf("%d of %d fixtures failed", report.FailCount, report.FixtureCount)
	}
	return nil
}
