package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/fingerprint"
	"github.com/efebarandurmaz/mixdown/internal/history"
	"github.com/efebarandurmaz/mixdown/internal/observability"
	"github.com/efebarandurmaz/mixdown/internal/qualitygate"
	"github.com/efebarandurmaz/mixdown/internal/snapshot"
	temporalmod "github.com/efebarandurmaz/mixdown/internal/temporal"
	"github.com/efebarandurmaz/mixdown/internal/verify"
)

type verifyOptions struct {
	fixturesPath string
	reportDir    string
	incremental  bool
	forceAll     bool
	dryRun       bool
	noHistory    bool
	withSnapshot bool
	jsonOutput   bool
}

func newVerifyCmd() *cobra.Command {
	var opts verifyOptions

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay fixtures against the scenario corpus and evaluate gates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), opts)
		},
	}
	verifyCmd.Flags().StringVar(&opts.fixturesPath, "fixtures", "", "Fixtures JSONL file (empty: replay the catalog's pinned expectations)")
	verifyCmd.Flags().StringVar(&opts.reportDir, "report-dir", "", "Write summary.json under this directory")
	verifyCmd.Flags().BoolVar(&opts.incremental, "incremental", false, "Only verify scenarios whose composition changed since the last passing run")
	verifyCmd.Flags().BoolVar(&opts.forceAll, "force-all", false, "Ignore saved fingerprints and verify everything")
	verifyCmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report what would be replayed, then stop")
	verifyCmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Skip recording the run in the history database")
	verifyCmd.Flags().BoolVar(&opts.withSnapshot, "snapshot", false, "Capture an outcome snapshot when the run passes")
	verifyCmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the report as JSON")

	var recordOutput string
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Execute every scenario and record the outcomes as fixtures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(recordOutput)
		},
	}
	recordCmd.Flags().StringVar(&recordOutput, "output", "fixtures/outcomes.jsonl", "Output file for recorded fixtures")

	var (
		wfScenarios []string
		wfWait      bool
		wfSnapshot  bool
	)
	workflowCmd := &cobra.Command{
		Use:   "workflow",
		Short: "Start a corpus verification workflow on Temporal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd.Context(), wfScenarios, wfWait, wfSnapshot)
		},
	}
	workflowCmd.Flags().StringSliceVar(&wfScenarios, "scenario", nil, "Scenario to verify (repeatable; empty: full corpus)")
	workflowCmd.Flags().BoolVar(&wfWait, "wait", true, "Wait for the workflow result")
	workflowCmd.Flags().BoolVar(&wfSnapshot, "snapshot", false, "Capture a snapshot after a passing run")

	verifyCmd.AddCommand(recordCmd, workflowCmd)
	return verifyCmd
}

func runVerify(ctx context.Context, opts verifyOptions) error {
	reg := catalog.Builtin()
	start := time.Now()

	fixtures, err := loadFixtures(reg, opts.fixturesPath)
	if err != nil {
		return err
	}

	hashes, err := fingerprint.ScenarioHashes(reg)
	if err != nil {
		return fmt.Errorf("fingerprinting catalog: %w", err)
	}
	analyzer := fingerprint.NewAnalyzer(&fingerprint.IncrementalConfig{
		StateDir: cfg.Verify.StateDir,
		ForceAll: opts.forceAll,
	})

	if opts.incremental {
		analysis, err := analyzer.Analyze(hashes)
		if err != nil {
			return fmt.Errorf("change analysis: %w", err)
		}
		fmt.Println(fingerprint.FormatAnalysis(analysis))

		keep := make(map[string]bool)
		for _, name := range analyzer.ScenariosToVerify(analysis) {
			keep[name] = true
		}
		var subset []verify.Fixture
		for _, f := range fixtures {
			if keep[f.Scenario] {
				subset = append(subset, f)
			}
		}
		if len(subset) == 0 {
			fmt.Println("Nothing changed since the last verified state.")
			return nil
		}
		fmt.Printf("Verifying %d of %d fixtures\n\n", len(subset), len(fixtures))
		fixtures = subset
	}

	if opts.dryRun {
		fmt.Printf("Dry run: %d fixtures would be replayed\n", len(fixtures))
		for _, f := range fixtures {
			fmt.Printf("  %s\n", f.Name)
		}
		return nil
	}

	defaults := &verify.NormalizeRules{
		IgnoreStateFields: cfg.Verify.IgnoreStateFields,
		IgnoreTraceNodes:  cfg.Verify.IgnoreTraceNodes,
	}
	report := verify.Run(reg, fixtures, defaults)
	observability.Audit().LogVerifyRun(ctx, report.FixtureCount, report.PassCount, time.Since(start))

	result := qualitygate.BuildPipeline(gateConfig()).Run(qualitygate.ContextFromReport(report, reg))

	if opts.jsonOutput {
		data, err := json.MarshalIndent(map[string]any{
			"report": report,
			"gates":  result,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		fmt.Print(verify.FormatReport(report))
		fmt.Println()
		fmt.Print(qualitygate.FormatReport(result))
	}

	if opts.reportDir != "" {
		if err := report.Write(opts.reportDir); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("\nReport written to %s\n", opts.reportDir)
	}

	if !opts.noHistory {
		if err := recordRun(ctx, report, hashes); err != nil {
			slog.Warn("recording run history failed", "error", err)
		}
	}

	if opts.withSnapshot && report.Pass {
		id, err := captureSnapshot(ctx, reg, "cli", "", "")
		if err != nil {
			return fmt.Errorf("capturing snapshot: %w", err)
		}
		fmt.Printf("Snapshot %s captured\n", id)
	}

	if report.Pass {
		if err := analyzer.SaveState(hashes); err != nil {
			slog.Warn("saving fingerprint state failed", "error", err)
		}
	}

	if result.Status == qualitygate.GateFailed {
		return fmt.Errorf("gates failed: %d of %d", result.FailedCount, len(result.Gates))
	}
	return nil
}

func loadFixtures(reg *catalog.Registry, path string) ([]verify.Fixture, error) {
	if path == "" {
		fixtures := verify.Pinned(reg)
		fmt.Printf("Replaying %d pinned expectations\n\n", len(fixtures))
		return fixtures, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fixtures: %w", err)
	}
	defer f.Close()

	fixtures, err := verify.ReadJSONL(f)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures: %w", err)
	}
	checkArchiveManifest(filepath.Dir(path))
	fmt.Printf("Loaded %d fixtures from %s\n\n", len(fixtures), path)
	return fixtures, nil
}

// checkArchiveManifest warns when the fixtures archive no longer matches
// the manifest recorded beside it. A missing manifest is fine.
func checkArchiveManifest(dir string) {
	m, mpath, err := verify.LoadManifest(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("fixtures manifest unreadable", "path", mpath, "error", err)
		}
		return
	}
	for _, problem := range verify.CheckManifest(dir, m) {
		slog.Warn("fixtures archive drifted from manifest", "problem", problem)
	}
}

// gateConfig returns the configured gates, falling back to the defaults
// when the config has no gates section.
func gateConfig() *qualitygate.GateConfig {
	if cfg.Gates.Enabled {
		gates := cfg.Gates
		return &gates
	}
	return qualitygate.DefaultConfig()
}

func recordRun(ctx context.Context, report *verify.Report, hashes map[string]string) error {
	store, err := history.NewStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	run, results := history.FromReport(report, "cli", hashes)
	return store.SaveRun(ctx, run, results)
}

func captureSnapshot(ctx context.Context, reg *catalog.Registry, origin, tag, description string) (string, error) {
	docs, infos, err := snapshot.Capture(reg)
	if err != nil {
		return "", err
	}

	snap := snapshot.NewSnapshot(origin, docs, infos)
	snap.Tag = tag
	snap.Description = description

	store, err := snapshot.NewStore(cfg.Snapshot.Dir)
	if err != nil {
		return "", err
	}
	if existing := store.List(); len(existing) > 0 {
		snap.ParentID = existing[0].ID
	}
	if err := store.Save(snap, docs); err != nil {
		return "", err
	}

	observability.Audit().LogSnapshotCreate(ctx, snap.ID, len(docs), snap.PassRate)
	return snap.ID, nil
}

func runRecord(outputPath string) error {
	fixtures, err := verify.Record(catalog.Builtin())
	if err != nil {
		return fmt.Errorf("recording outcomes: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outputPath, err)
	}
	defer f.Close()

	if err := verify.WriteJSONL(f, fixtures); err != nil {
		return fmt.Errorf("writing fixtures: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", outputPath, err)
	}

	dir, base := filepath.Dir(outputPath), filepath.Base(outputPath)
	m, err := verify.BuildManifest(dir, []string{base})
	if err != nil {
		return err
	}
	mpath, err := verify.WriteManifest(dir, m)
	if err != nil {
		return err
	}

	fmt.Printf("Recorded %d fixtures to %s\n", len(fixtures), outputPath)
	fmt.Printf("Manifest written to %s\n", mpath)
	return nil
}

func runWorkflow(ctx context.Context, scenarios []string, wait, capture bool) error {
	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	input := temporalmod.VerifyCorpusInput{
		Scenarios:       scenarios,
		HistoryOrigin:   "workflow",
		CaptureSnapshot: capture,
		SnapshotDir:     cfg.Snapshot.Dir,
	}

	workflowID := fmt.Sprintf("corpus-verify-%d", time.Now().UnixNano())
	we, err := c.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: cfg.Temporal.TaskQueue,
	}, temporalmod.CorpusVerifyWorkflow, input)
	if err != nil {
		return fmt.Errorf("starting workflow: %w", err)
	}

	observability.Audit().LogWorkflowStart(ctx, workflowID, scenarios)
	fmt.Printf("Started workflow %s (run %s) on task queue %s\n", we.GetID(), we.GetRunID(), cfg.Temporal.TaskQueue)

	if !wait {
		return nil
	}

	start := time.Now()
	var out temporalmod.VerifyCorpusOutput
	if err := we.Get(ctx, &out); err != nil {
		observability.Audit().LogWorkflowEnd(ctx, workflowID, false, time.Since(start), 0, 0)
		return fmt.Errorf("workflow failed: %w", err)
	}
	observability.Audit().LogWorkflowEnd(ctx, workflowID, out.Pass, time.Since(start), out.PassCount, out.FailCount)

	fmt.Printf("\nScenarios: %d\n", out.ScenarioCount)
	fmt.Printf("Fixtures:  %d (%d pass, %d fail)\n", out.FixtureCount, out.PassCount, out.FailCount)
	fmt.Printf("Gates:     %s\n", out.GateStatus)
	if out.SnapshotID != "" {
		fmt.Printf("Snapshot:  %s\n", out.SnapshotID)
	}
	for _, e := range out.Errors {
		fmt.Printf("Error: %s\n", e)
	}
	if !out.Pass {
		return fmt.Errorf("verification failed: %d of %d fixtures", out.FailCount, out.FixtureCount)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded verification runs",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd.Context(), limit)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show every scenario result of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd.Context(), args[0])
		},
	}

	var scenarioLimit int
	scenarioCmd := &cobra.Command{
		Use:   "scenario <name>",
		Short: "Show the result history of one scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryScenario(cmd.Context(), args[0], scenarioLimit)
		},
	}
	scenarioCmd.Flags().IntVar(&scenarioLimit, "limit", 10, "Maximum number of results to show")

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than the configured retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryPrune(cmd.Context())
		},
	}

	historyCmd.AddCommand(listCmd, showCmd, scenarioCmd, pruneCmd)
	return historyCmd
}

func openHistory() (*history.Store, error) {
	store, err := history.NewStore(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	return store, nil
}

func runHistoryList(ctx context.Context, limit int) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Summarize(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d runs recorded (%d passed, %d failed)\n\n", summary.TotalRuns, summary.PassedRuns, summary.FailedRuns)

	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		status := "PASS"
		if !r.Pass {
			status = "FAIL"
		}
		fmt.Printf("  %s  %s  [%s]  %-8s  %d/%d scenarios\n",
			r.RunID, r.StartedAt.Format(time.RFC3339), status, r.Origin, r.PassCount, r.ScenarioCount)
	}
	return nil
}

func runHistoryShow(ctx context.Context, runID string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	status := "PASS"
	if !run.Pass {
		status = "FAIL"
	}
	fmt.Printf("Run %s [%s]\n", run.RunID, status)
	fmt.Printf("  Origin:    %s\n", run.Origin)
	fmt.Printf("  Started:   %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Printf("  Finished:  %s\n", run.FinishedAt.Format(time.RFC3339))
	fmt.Printf("  Scenarios: %d (%d pass, %d fail)\n\n", run.ScenarioCount, run.PassCount, run.FailCount)

	results, err := store.Results(ctx, runID)
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.Pass {
			fmt.Printf("  [PASS] %s\n", res.Scenario)
		} else {
			fmt.Printf("  [FAIL] %s: %s\n", res.Scenario, res.Reason)
		}
	}
	return nil
}

func runHistoryScenario(ctx context.Context, name string, limit int) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.ScenarioHistory(ctx, name, limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Printf("No recorded results for %s\n", name)
		return nil
	}

	fmt.Printf("Last %d results for %s (newest first):\n", len(results), name)
	for _, res := range results {
		if res.Pass {
			fmt.Printf("  [PASS] run %s  %d events\n", res.RunID, len(res.Trace))
		} else {
			fmt.Printf("  [FAIL] run %s  %s\n", res.RunID, res.Reason)
		}
	}
	return nil
}

func runHistoryPrune(ctx context.Context) error {
	retention := cfg.History.RetentionDays
	if retention <= 0 {
		return fmt.Errorf("history retention_days is %d, nothing to prune", retention)
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	cutoff := time.Now().AddDate(0, 0, -retention)
	deleted, err := store.PruneBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d runs older than %s\n", deleted, cutoff.Format("2006-01-02"))
	return nil
}

func newSnapshotCmd() *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture and compare corpus outcome snapshots",
	}

	var (
		tag         string
		description string
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Execute the corpus and store a snapshot of the outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := captureSnapshot(cmd.Context(), catalog.Builtin(), "cli", tag, description)
			if err != nil {
				return err
			}
			fmt.Printf("Snapshot %s created\n", id)
			return nil
		},
	}
	createCmd.Flags().StringVar(&tag, "tag", "", "Tag for the snapshot (e.g. release-1.2)")
	createCmd.Flags().StringVar(&description, "description", "", "Free-form description")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotList()
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id-or-tag>",
		Short: "Show one snapshot's scenarios and manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotShow(args[0])
		},
	}

	diffCmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Diff two snapshots scenario by scenario",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotDiff(args[0], args[1])
		},
	}

	var exportDir string
	exportCmd := &cobra.Command{
		Use:   "export <id-or-tag>",
		Short: "Export a snapshot's outcome documents to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotExport(cmd.Context(), args[0], exportDir)
		},
	}
	exportCmd.Flags().StringVar(&exportDir, "output", "snapshot-export", "Target directory")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot and its unshared objects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotDelete(args[0])
		},
	}

	snapshotCmd.AddCommand(createCmd, listCmd, showCmd, diffCmd, exportCmd, deleteCmd)
	return snapshotCmd
}

func openSnapshots() (*snapshot.Store, error) {
	store, err := snapshot.NewStore(cfg.Snapshot.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}
	return store, nil
}

// loadSnapshot resolves a reference that may be a snapshot ID or a tag.
func loadSnapshot(store *snapshot.Store, ref string) (*snapshot.Snapshot, error) {
	snap, err := store.Load(ref)
	if err == nil {
		return snap, nil
	}
	if byTag, tagErr := store.FindByTag(ref); tagErr == nil {
		return byTag, nil
	}
	return nil, err
}

func runSnapshotList() error {
	store, err := openSnapshots()
	if err != nil {
		return err
	}

	summaries := store.List()
	if len(summaries) == 0 {
		fmt.Println("No snapshots captured yet.")
		return nil
	}
	for _, s := range summaries {
		tag := ""
		if s.Tag != "" {
			tag = "  (" + s.Tag + ")"
		}
		fmt.Printf("  %s  %s  %-8s  %3.0f%% pass  %d scenarios%s\n",
			s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.Status, s.PassRate*100, s.ScenarioCount, tag)
	}
	return nil
}

func runSnapshotShow(ref string) error {
	store, err := openSnapshots()
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(store, ref)
	if err != nil {
		return err
	}

	fmt.Printf("Snapshot %s [%s]\n", snap.ID, snap.Status)
	if snap.Tag != "" {
		fmt.Printf("  Tag:         %s\n", snap.Tag)
	}
	if snap.Description != "" {
		fmt.Printf("  Description: %s\n", snap.Description)
	}
	if snap.ParentID != "" {
		fmt.Printf("  Parent:      %s\n", snap.ParentID)
	}
	fmt.Printf("  Created:     %s\n", snap.CreatedAt.Format(time.RFC3339))
	fmt.Printf("  Origin:      %s\n", snap.Origin)
	fmt.Printf("  Pass rate:   %.0f%%\n", snap.PassRate*100)
	fmt.Printf("  Content:     %s\n\n", snap.ContentHash)

	for _, info := range snap.Scenarios {
		if info.Error != "" {
			fmt.Printf("  [ERR ] %-22s %s\n", info.Name, info.Error)
			continue
		}
		fmt.Printf("  [ OK ] %-22s %d nodes, %d events\n", info.Name, info.OrderLen, info.EventCount)
	}
	return nil
}

func runSnapshotDiff(oldRef, newRef string) error {
	store, err := openSnapshots()
	if err != nil {
		return err
	}
	oldSnap, err := loadSnapshot(store, oldRef)
	if err != nil {
		return fmt.Errorf("loading %s: %w", oldRef, err)
	}
	newSnap, err := loadSnapshot(store, newRef)
	if err != nil {
		return fmt.Errorf("loading %s: %w", newRef, err)
	}

	d, err := snapshot.Diff(oldSnap, newSnap, store)
	if err != nil {
		return fmt.Errorf("diffing: %w", err)
	}
	fmt.Print(snapshot.FormatDiff(d))
	return nil
}

func runSnapshotExport(ctx context.Context, ref, targetDir string) error {
	store, err := openSnapshots()
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(store, ref)
	if err != nil {
		return err
	}

	if err := store.Export(snap, targetDir); err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	observability.Audit().LogSnapshotExport(ctx, snap.ID, targetDir, len(snap.Manifest))
	fmt.Printf("Exported snapshot %s to %s\n", snap.ID, targetDir)
	return nil
}

func runSnapshotDelete(id string) error {
	store, err := openSnapshots()
	if err != nil {
		return err
	}
	if err := store.Delete(id); err != nil {
		return err
	}
	fmt.Printf("Deleted snapshot %s\n", id)
	return nil
}
