package temporal

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/efebarandurmaz/mixdown/internal/observability"
)

// StartWorker creates and starts a Temporal worker.
func StartWorker(c client.Client, taskQueue string) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(CorpusVerifyWorkflow)
	w.RegisterActivity(ListScenariosActivity)
	w.RegisterActivity(ExecuteScenarioActivity)
	w.RegisterActivity(ReplayFixturesActivity)
	w.RegisterActivity(EvaluateGatesActivity)
	w.RegisterActivity(CaptureSnapshotActivity)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	observability.ActiveWorkers.Inc()
	return w, nil
}

// StopWorker stops a running worker.
func StopWorker(w worker.Worker) {
	w.Stop()
	observability.ActiveWorkers.Dec()
}
