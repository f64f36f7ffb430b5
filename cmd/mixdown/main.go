package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/mixdown/internal/cache"
	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/composition"
	"github.com/efebarandurmaz/mixdown/internal/config"
	"github.com/efebarandurmaz/mixdown/internal/dispatch"
	"github.com/efebarandurmaz/mixdown/internal/linearize"
	"github.com/efebarandurmaz/mixdown/internal/observability"
	"github.com/efebarandurmaz/mixdown/internal/secrets"
	"github.com/efebarandurmaz/mixdown/internal/similarity"
	simqdrant "github.com/efebarandurmaz/mixdown/internal/similarity/qdrant"
	"github.com/efebarandurmaz/mixdown/internal/tui"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// cfg and tracing are initialized by the root command's PersistentPreRunE
// and shared by every subcommand.
var (
	cfg     *config.Config
	tracing *observability.TracerProvider
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "mixdown",
		Short: "Mixin composition and linearization engine",
		Long: "Mixdown validates mixin compositions, computes initialization and\n" +
			"resolution orders, dispatches methods along them, and verifies\n" +
			"construction traces against pinned expectations.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initRuntime(cmd.Context(), configPath)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if tracing != nil {
				_ = tracing.Shutdown(context.Background())
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (empty: defaults plus MIXDOWN_* environment)")

	var (
		linExplain bool
		linJSON    bool
	)
	linearizeCmd := &cobra.Command{
		Use:   "linearize <scenario>",
		Short: "Show the initialization and resolution order of a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLinearize(cmd.Context(), args[0], linExplain, linJSON)
		},
	}
	linearizeCmd.Flags().BoolVar(&linExplain, "explain", false, "Annotate each node with the path edge that fixed its position")
	linearizeCmd.Flags().BoolVar(&linJSON, "json", false, "Output as JSON")

	var traceJSON bool
	traceCmd := &cobra.Command{
		Use:   "trace <scenario>",
		Short: "Construct a scenario instance and print its initialization trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), args[0], traceJSON)
		},
	}
	traceCmd.Flags().BoolVar(&traceJSON, "json", false, "Output the full outcome as JSON")

	var (
		resolveFrom  string
		resolveChain bool
		resolveJSON  bool
	)
	resolveCmd := &cobra.Command{
		Use:   "resolve <scenario> <method>",
		Short: "Resolve a method against the linearized composition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), args[0], args[1], resolveFrom, resolveChain, resolveJSON)
		},
	}
	resolveCmd.Flags().StringVar(&resolveFrom, "from", "", "Resolve as a super call from this node")
	resolveCmd.Flags().BoolVar(&resolveChain, "chain", false, "Show every declaration along the resolution order")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Output as JSON")

	var (
		exportFormat string
		exportOutput string
	)
	exportCmd := &cobra.Command{
		Use:   "export <scenario>",
		Short: "Export a composition graph as dot, mermaid, or json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(args[0], exportFormat, exportOutput)
		},
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "dot", "Output format: dot, mermaid, or json")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "Write to a file instead of stdout")

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the scenario catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogList()
		},
	}
	catalogListCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogList()
		},
	}
	catalogShowCmd := &cobra.Command{
		Use:   "show <scenario>",
		Short: "Describe one scenario: composition, methods, pins",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogShow(args[0])
		},
	}
	var topK int
	catalogSimilarCmd := &cobra.Command{
		Use:   "similar <scenario>",
		Short: "Find structurally similar scenarios",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogSimilar(cmd.Context(), args[0], topK)
		},
	}
	catalogSimilarCmd.Flags().IntVar(&topK, "top-k", 3, "Number of similar scenarios to return")
	catalogCmd.AddCommand(catalogListCmd, catalogShowCmd, catalogSimilarCmd)

	var tuiReport string
	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Inspect scenarios interactively: traces, orders, pin diffs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(tuiReport)
		},
	}
	tuiCmd.Flags().StringVar(&tuiReport, "report", "", "Write a JSON inspection report on exit")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the mixdown version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mixdown %s\n", version)
		},
	}

	rootCmd.AddCommand(
		linearizeCmd, traceCmd, resolveCmd, exportCmd, catalogCmd,
		newVerifyCmd(), newHistoryCmd(), newSnapshotCmd(), newServeCmd(),
		tuiCmd, versionCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initRuntime loads configuration and initializes logging, secrets,
// audit, and tracing for the invoked command.
func initRuntime(ctx context.Context, configPath string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	setupLogging(cfg.Log)

	if err := secrets.Init(secrets.DefaultConfig()); err != nil {
		return fmt.Errorf("initializing secrets: %w", err)
	}

	if err := observability.InitGlobalAuditLogger(&observability.AuditConfig{
		Enabled:    cfg.Observability.AuditPath != "",
		OutputPath: cfg.Observability.AuditPath,
	}); err != nil {
		return fmt.Errorf("initializing audit log: %w", err)
	}

	tracing, err = observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		SampleRate:     1.0,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	return nil
}

func setupLogging(logCfg config.LogConfig) {
	var level slog.Level
	switch logCfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if logCfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func runLinearize(ctx context.Context, name string, explain, jsonOut bool) error {
	s, err := catalog.Builtin().Get(name)
	if err != nil {
		return err
	}
	g, err := s.Graph()
	if err != nil {
		return fmt.Errorf("building composition: %w", err)
	}

	order := linearize.Linearize(g)
	observability.Audit().LogLinearize(ctx, s.Name, g.Root().Name, order.Names())

	if jsonOut {
		data, err := json.MarshalIndent(map[string]any{
			"scenario":   s.Name,
			"root":       g.Root().Name,
			"order":      order.Names(),
			"resolution": order.Resolution(),
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(g.Describe())
	fmt.Println()
	if explain {
		fmt.Print(order.Explain())
		fmt.Println()
	} else {
		fmt.Printf("Initialization order: %s\n", order.String())
	}
	fmt.Printf("Resolution order:     %s\n", strings.Join(order.Resolution(), " -> "))
	return nil
}

func runTrace(ctx context.Context, name string, jsonOut bool) error {
	ctx, span := observability.StartRunSpan(ctx, name)
	defer span.End()

	start := time.Now()
	out, err := executeScenario(ctx, catalog.Builtin(), name)
	if err != nil {
		observability.RecordError(span, err)
		return err
	}
	observability.RecordRunResult(span, len(out.Trace), time.Since(start))

	if jsonOut {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	for _, line := range out.Trace {
		fmt.Println(line)
	}
	if len(out.FinalState) > 0 {
		fmt.Println("\nFinal state:")
		fields := make([]string, 0, len(out.FinalState))
		for f := range out.FinalState {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Printf("  %s = %s\n", f, out.FinalState[f])
		}
	}
	return nil
}

// executeScenario runs a scenario through the shared outcome cache when
// one is configured. The in-process memory cache would not outlive the
// command, so only redis is worth dialing here.
func executeScenario(ctx context.Context, reg *catalog.Registry, name string) (*catalog.Outcome, error) {
	if cfg.Cache.Backend == "redis" {
		password := secrets.GetOrDefault(ctx, string(secrets.SecretCachePassword), cfg.Cache.Password)
		store, err := cache.DialRedis(ctx, cfg.Cache.Addr, password, cfg.Cache.DB)
		if err == nil {
			defer store.Close()
			return cache.NewExecutor(store, reg, cfg.Cache.TTL).Execute(ctx, name)
		}
		slog.Warn("redis unavailable, executing directly", "error", err)
	}

	s, err := reg.Get(name)
	if err != nil {
		return nil, err
	}
	return catalog.Execute(s)
}

func runResolve(ctx context.Context, scenario, method, fromNode string, showChain, jsonOut bool) error {
	s, err := catalog.Builtin().Get(scenario)
	if err != nil {
		return err
	}
	g, err := s.Graph()
	if err != nil {
		return fmt.Errorf("building composition: %w", err)
	}
	table := dispatch.NewTable(g, linearize.Linearize(g))

	receiver := g.Root().Name
	if fromNode != "" {
		receiver = fromNode
	}
	_, span := observability.StartResolveSpan(ctx, receiver, method)
	defer span.End()

	var entry dispatch.Entry
	if fromNode != "" {
		entry, err = table.SuperCall(fromNode, method)
	} else {
		entry, err = table.Resolve(method)
	}
	if err != nil {
		observability.RecordError(span, err)
		return err
	}
	chain := table.Chain(method)
	observability.RecordResolveResult(span, entry.Owner, len(chain))

	if jsonOut {
		data, err := json.MarshalIndent(map[string]any{
			"scenario": s.Name,
			"method":   method,
			"resolved": entry,
			"chain":    chain,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if showChain {
		fmt.Printf("Declarations of %s (most derived first):\n", method)
		for _, e := range chain {
			marker := " "
			if e.Owner == entry.Owner {
				marker = "*"
			}
			result := e.Result
			if e.Abstract {
				result = "<abstract>"
			}
			fmt.Printf("  %s %-16s %s\n", marker, e.Owner, result)
		}
		fmt.Println()
	}

	if fromNode != "" {
		fmt.Printf("super[%s].%s resolves to %s.%s", fromNode, method, entry.Owner, entry.Method)
	} else {
		fmt.Printf("%s.%s resolves to %s.%s", g.Root().Name, method, entry.Owner, entry.Method)
	}
	if entry.Result != "" {
		fmt.Printf(" = %s", entry.Result)
	}
	fmt.Println()
	return nil
}

func runExport(name, format, outPath string) error {
	s, err := catalog.Builtin().Get(name)
	if err != nil {
		return err
	}
	g, err := s.Graph()
	if err != nil {
		return fmt.Errorf("building composition: %w", err)
	}

	var rendered []byte
	switch format {
	case "dot":
		rendered = []byte(composition.ExportDOT(g))
	case "mermaid":
		rendered = []byte(composition.ExportMermaid(g))
	case "json":
		rendered, err = composition.ExportJSON(g)
		if err != nil {
			return fmt.Errorf("rendering json: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q (expected dot, mermaid, or json)", format)
	}

	if outPath == "" {
		fmt.Print(string(rendered))
		if len(rendered) > 0 && rendered[len(rendered)-1] != '\n' {
			fmt.Println()
		}
		return nil
	}
	if err := os.WriteFile(outPath, rendered, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Printf("Exported %s as %s to %s\n", name, format, outPath)
	return nil
}

func runCatalogList() error {
	reg := catalog.Builtin()
	fmt.Printf("%d scenarios registered:\n\n", reg.Len())
	for _, s := range reg.All() {
		pinned := " "
		if len(s.WantOrder) > 0 || s.WantTrace != "" {
			pinned = "*"
		}
		fmt.Printf("  %s %-22s %s\n", pinned, s.Name, s.Description)
	}
	fmt.Println("\n  (* = pinned expectations)")
	return nil
}

func runCatalogShow(name string) error {
	s, err := catalog.Builtin().Get(name)
	if err != nil {
		return err
	}
	g, err := s.Graph()
	if err != nil {
		return fmt.Errorf("building composition: %w", err)
	}

	fmt.Printf("%s: %s\n\n", s.Name, s.Description)
	fmt.Println(g.Describe())
	fmt.Println()
	fmt.Println(composition.FormatStats(g))

	table := dispatch.NewTable(g, linearize.Linearize(g))
	if methods := table.Methods(); len(methods) > 0 {
		fmt.Println("Methods:")
		for _, m := range methods {
			entry, err := table.Resolve(m)
			if err != nil {
				fmt.Printf("  %-14s (unresolvable: %v)\n", m, err)
				continue
			}
			fmt.Printf("  %-14s -> %s\n", m, entry.Owner)
		}
		fmt.Println()
	}

	if len(s.WantOrder) > 0 {
		fmt.Printf("Pinned order: %s\n", strings.Join(s.WantOrder, " -> "))
	}
	if s.WantTrace != "" {
		fmt.Println("Pinned trace:")
		for _, line := range strings.Split(s.WantTrace, ";") {
			fmt.Printf("  %s\n", line)
		}
	}
	return nil
}

func runCatalogSimilar(ctx context.Context, name string, topK int) error {
	reg := catalog.Builtin()
	s, err := reg.Get(name)
	if err != nil {
		return err
	}
	g, err := s.Graph()
	if err != nil {
		return fmt.Errorf("building composition: %w", err)
	}

	repo, err := similarityRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	ix := similarity.NewIndexer(repo)
	if err := ix.IndexAll(ctx, reg); err != nil {
		return fmt.Errorf("indexing catalog: %w", err)
	}

	// One extra result because the scenario matches itself.
	results, err := ix.FindSimilar(ctx, g, topK+1)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	fmt.Printf("Scenarios structurally similar to %s:\n", name)
	shown := 0
	for _, r := range results {
		if r.ID == name {
			continue
		}
		if shown >= topK {
			break
		}
		fmt.Printf("  %.3f  %s\n", r.Score, r.ID)
		shown++
	}
	if shown == 0 {
		fmt.Println("  (none)")
	}
	return nil
}

func similarityRepository(ctx context.Context) (similarity.Repository, error) {
	if !cfg.Vector.Enabled {
		return similarity.NewMemory(), nil
	}
	repo, err := simqdrant.New(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}
	return repo, nil
}

func runTUI(reportPath string) error {
	session, err := tui.RunInspect(tui.NewInspectSession(catalog.Builtin()))
	if err != nil {
		return err
	}
	if reportPath != "" {
		if err := tui.SaveInspectReport(session, reportPath); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Inspection report written to %s\n", reportPath)
	}
	return nil
}
