package sync

import (
	"gopricewatch_api/internal/pricesync/models"
	"gopricewatch_api/pkg/logger"
)

// statusTracker pushes progress into the run-status record when a run id
// was supplied and degrades to a no-op otherwise. Status write failures
// are logged, never fatal: the run outlives its progress record.
type statusTracker struct {
	runs  RunStatusStore
	runID string
	log   logger.Logger
}

func newStatusTracker(runs RunStatusStore, runID string, log logger.Logger) *statusTracker {
	return &statusTracker{runs: runs, runID: runID, log: log}
}

func (t *statusTracker) enabled() bool {
	return t.runs != nil && t.runID != ""
}

func (t *statusTracker) start(total int) {
	if !t.enabled() {
		return
	}
	if err := t.runs.CreateRun(t.runID, total); err != nil {
		t.log.Log("run status create failed: %v", err)
	}
}

func (t *statusTracker) before(done, total int, label string) {
	if !t.enabled() {
		return
	}
	patch := models.RunStatusPatch{Progress: &done, Total: &total, CurrentItem: &label}
	if err := t.runs.UpdateRunStatus(t.runID, patch); err != nil {
		t.log.Log("run status update failed: %v", err)
	}
}

func (t *statusTracker) after(done, total int) {
	if !t.enabled() {
		return
	}
	patch := models.RunStatusPatch{Progress: &done, Total: &total}
	if err := t.runs.UpdateRunStatus(t.runID, patch); err != nil {
		t.log.Log("run status update failed: %v", err)
	}
}

func (t *statusTracker) complete(total int) {
	if !t.enabled() {
		return
	}
	status := models.RunCompleted
	patch := models.RunStatusPatch{Status: &status, Progress: &total, Total: &total}
	if err := t.runs.UpdateRunStatus(t.runID, patch); err != nil {
		t.log.Log("run status finalize failed: %v", err)
	}
}

func (t *statusTracker) fail(cause error) {
	if !t.enabled() {
		return
	}
	status := models.RunError
	message := cause.Error()
	patch := models.RunStatusPatch{Status: &status, ErrorMessage: &message}
	if err := t.runs.UpdateRunStatus(t.runID, patch); err != nil {
		t.log.Log("run status finalize failed: %v", err)
	}
}
