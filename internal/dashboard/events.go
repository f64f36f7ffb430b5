package dashboard

import (
	"time"
)

// Emitter records verification pipeline progress and forwards it to the
// dashboard. It is safe to use from multiple goroutines; the store and hub
// carry their own locks.
type Emitter struct {
	store *Store
	hub   *Hub
}

// NewEmitter creates a new event emitter.
func NewEmitter(store *Store, hub *Hub) *Emitter {
	return &Emitter{store: store, hub: hub}
}

// RunStarted creates a new VerificationRun in the store with StatusRunning
// and broadcasts a "run.started" event.
func (e *Emitter) RunStarted(id, name, origin string, scenarioCount int) {
	run := &VerificationRun{
		ID:            id,
		Name:          name,
		Origin:        origin,
		Status:        StatusRunning,
		Phases:        make([]PhaseResult, 0),
		StartedAt:     time.Now(),
		ScenarioCount: scenarioCount,
	}

	e.store.CreateRun(run)

	e.hub.Broadcast(&Event{
		Type:      "run.started",
		Timestamp: time.Now(),
		RunID:     id,
		Data:      run,
	})
}

// PhaseStarted appends a new PhaseResult with StatusRunning to the run and
// broadcasts a "phase.started" event.
func (e *Emitter) PhaseStarted(runID string, phase PhaseKind) {
	phaseResult := PhaseResult{
		Phase:     phase,
		Status:    StatusRunning,
		StartedAt: time.Now(),
		Metrics:   PhaseMetrics{},
	}

	e.store.UpdateRun(runID, func(run *VerificationRun) {
		run.Phases = append(run.Phases, phaseResult)
	})

	e.hub.Broadcast(&Event{
		Type:      "phase.started",
		Timestamp: time.Now(),
		RunID:     runID,
		Phase:     phase,
		Data:      phaseResult,
	})
}

// PhaseCompleted marks the most recent matching phase StatusCompleted, sets
// its duration and metrics, and broadcasts a "phase.completed" event.
func (e *Emitter) PhaseCompleted(runID string, phase PhaseKind, metrics PhaseMetrics) {
	var phaseResult PhaseResult

	e.store.UpdateRun(runID, func(run *VerificationRun) {
		// Walk backwards so a re-run phase updates its latest entry.
		for i := len(run.Phases) - 1; i >= 0; i-- {
			if run.Phases[i].Phase == phase {
				now := time.Now()
				run.Phases[i].Status = StatusCompleted
				run.Phases[i].CompletedAt = &now
				run.Phases[i].Duration = now.Sub(run.Phases[i].StartedAt)
				run.Phases[i].Metrics = metrics
				phaseResult = run.Phases[i]
				break
			}
		}
	})

	e.hub.Broadcast(&Event{
		Type:      "phase.completed",
		Timestamp: time.Now(),
		RunID:     runID,
		Phase:     phase,
		Data:      phaseResult,
	})
}

// PhaseFailed marks the most recent matching phase StatusFailed, records the
// error, and broadcasts a "phase.failed" event.
func (e *Emitter) PhaseFailed(runID string, phase PhaseKind, err error) {
	var phaseResult PhaseResult
	errorMsg := ""
	if err != nil {
		errorMsg = err.Error()
	}

	e.store.UpdateRun(runID, func(run *VerificationRun) {
		for i := len(run.Phases) - 1; i >= 0; i-- {
			if run.Phases[i].Phase == phase {
				now := time.Now()
				run.Phases[i].Status = StatusFailed
				run.Phases[i].CompletedAt = &now
				run.Phases[i].Duration = now.Sub(run.Phases[i].StartedAt)
				run.Phases[i].Error = errorMsg
				phaseResult = run.Phases[i]
				break
			}
		}
	})

	e.hub.Broadcast(&Event{
		Type:      "phase.failed",
		Timestamp: time.Now(),
		RunID:     runID,
		Phase:     phase,
		Data:      phaseResult,
	})
}

// RunCompleted marks the run StatusCompleted, records the fixture tallies and
// gate outcome, and broadcasts a "run.completed" event.
func (e *Emitter) RunCompleted(runID string, fixtureCount, fixturesPassed, fixturesFailed int, gateStatus, snapshotID string) {
	var completedRun *VerificationRun

	e.store.UpdateRun(runID, func(run *VerificationRun) {
		now := time.Now()
		run.Status = StatusCompleted
		run.CompletedAt = &now
		run.FixtureCount = fixtureCount
		run.FixturesPassed = fixturesPassed
		run.FixturesFailed = fixturesFailed
		run.GateStatus = gateStatus
		run.SnapshotID = snapshotID
		completedRun = run
	})

	e.hub.Broadcast(&Event{
		Type:      "run.completed",
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      completedRun,
	})
}

// RunFailed marks the run StatusFailed and broadcasts a "run.failed" event.
func (e *Emitter) RunFailed(runID string, err error) {
	var failedRun *VerificationRun
	errorMsg := ""
	if err != nil {
		errorMsg = err.Error()
	}

	e.store.UpdateRun(runID, func(run *VerificationRun) {
		now := time.Now()
		run.Status = StatusFailed
		run.CompletedAt = &now
		run.Error = errorMsg
		failedRun = run
	})

	e.hub.Broadcast(&Event{
		Type:      "run.failed",
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      failedRun,
	})
}

// Log adds a LogEntry to the store and broadcasts a "log" event.
func (e *Emitter) Log(runID, phase, level, message string) {
	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		RunID:     runID,
		Phase:     phase,
	}

	e.store.AddLog(entry)

	e.hub.Broadcast(&Event{
		Type:      "log",
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      entry,
	})
}
