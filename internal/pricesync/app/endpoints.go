package app

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	syncsvc "gopricewatch_api/internal/pricesync/business/services/sync"
	"gopricewatch_api/internal/pricesync/models"
	"gopricewatch_api/internal/pricesync/storage"
	"gopricewatch_api/internal/sefaz/business/services/health"
)

type SyncHandler struct {
	processor *syncsvc.Processor
	runs      *storage.SyncRunsRepository
	tracker   *health.Tracker
}

func NewSyncHandler(processor *syncsvc.Processor, runs *storage.SyncRunsRepository, tracker *health.Tracker) *SyncHandler {
	return &SyncHandler{processor: processor, runs: runs, tracker: tracker}
}

type syncRequest struct {
	AllUsers bool   `json:"all_users"`
	UserID   int64  `json:"user_id"`
	RunID    string `json:"run_id"`
	Source   string `json:"source"`
}

type syncResponse struct {
	Processed  int   `json:"processed"`
	Errors     int   `json:"errors"`
	DurationMs int64 `json:"duration_ms"`
}

// TriggerSyncHandler runs a batch sync for the requested scope and blocks
// until it finishes. Scheduling and fire-and-forget semantics belong to
// the caller, not the engine.
func (h *SyncHandler) TriggerSyncHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "failed to decode request body", http.StatusBadRequest)
		return
	}

	var scope models.Scope
	if req.AllUsers {
		scope = models.ScopeAllUsers()
	} else {
		if req.UserID <= 0 {
			http.Error(w, "user_id is required when all_users is false", http.StatusBadRequest)
			return
		}
		scope = models.ScopeUser(req.UserID)
	}

	result, err := h.processor.Run(r.Context(), scope, req.RunID, req.Source)
	if err != nil {
		if errors.Is(err, syncsvc.ErrRunInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.Printf("sync run failed: %v", err)
		http.Error(w, "sync run failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, syncResponse{
		Processed:  result.Processed,
		Errors:     result.Errors,
		DurationMs: result.Duration.Milliseconds(),
	})
}

func (h *SyncHandler) RunStatusHandler(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}

	run, err := h.runs.GetRun(runID)
	if err != nil {
		log.Printf("failed to load run status: %v", err)
		http.Error(w, "failed to load run status", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	writeJSON(w, run)
}

func (h *SyncHandler) UpstreamHealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.tracker.GetMetrics())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
