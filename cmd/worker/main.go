package main

import (
	"context"
	"fmt"
	"log"
	"os"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/config"
	"github.com/efebarandurmaz/mixdown/internal/history"
	"github.com/efebarandurmaz/mixdown/internal/observability"
	"github.com/efebarandurmaz/mixdown/internal/qualitygate"
	"github.com/efebarandurmaz/mixdown/internal/secrets"
	"github.com/efebarandurmaz/mixdown/internal/server"
	"github.com/efebarandurmaz/mixdown/internal/temporal"
)

func main() {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx := context.Background()

	if err := secrets.Init(secrets.DefaultConfig()); err != nil {
		log.Fatalf("initializing secrets: %v", err)
	}

	if err := observability.InitGlobalAuditLogger(&observability.AuditConfig{
		Enabled:    cfg.Observability.AuditPath != "",
		OutputPath: cfg.Observability.AuditPath,
	}); err != nil {
		log.Fatalf("initializing audit log: %v", err)
	}

	tracing, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:  cfg.Observability.ServiceName + "-worker",
		OTLPEndpoint: cfg.Observability.OTLPEndpoint,
		SampleRate:   1.0,
	})
	if err != nil {
		log.Fatalf("initializing tracing: %v", err)
	}

	hist, err := history.NewStore(cfg.History.Path)
	if err != nil {
		log.Fatalf("opening history database: %v", err)
	}

	gates := qualitygate.DefaultConfig()
	if cfg.Gates.Enabled {
		g := cfg.Gates
		gates = &g
	}

	temporal.SetDependencies(&temporal.Dependencies{
		Registry: catalog.Builtin(),
		History:  hist,
		Gates:    gates,
	})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("connecting to temporal at %s: %v", cfg.Temporal.Host, err)
	}
	defer c.Close()

	w, err := temporal.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		log.Fatalf("starting worker: %v", err)
	}
	fmt.Printf("Worker started on task queue: %s\n", cfg.Temporal.TaskQueue)

	shutdown := server.NewShutdownHandler(server.DefaultShutdownConfig())
	hooks := []server.ShutdownHook{
		server.TemporalWorkerShutdownHook(func() { temporal.StopWorker(w) }),
		server.TracingShutdownHook(tracing.Shutdown),
		server.DatabaseShutdownHook(hist.Close),
		server.AuditLoggerShutdownHook(observability.Audit().Close),
	}
	for _, h := range hooks {
		shutdown.RegisterHook(h.Name, h.Priority, h.Fn)
	}

	shutdown.Start()
	shutdown.Wait()
	fmt.Println("Worker stopped")
}
