package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gopricewatch_api/internal/pricesync/models"
)

type SyncRunsRepository struct {
	db *sql.DB
}

func NewSyncRunsRepository(db *sql.DB) *SyncRunsRepository {
	return &SyncRunsRepository{db: db}
}

// CreateRun opens (or reopens) a status record for a run id.
func (r *SyncRunsRepository) CreateRun(runID string, total int) error {
	query := `
		INSERT INTO pricewatch.sync_runs (id, status, progress, total, started_at)
		VALUES ($1, $2, 0, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
			progress = 0,
			total = EXCLUDED.total,
			current_item = NULL,
			error_message = NULL,
			started_at = now(),
			finished_at = NULL;
		`
	if _, err := r.db.Exec(query, runID, models.RunRunning, total); err != nil {
		return fmt.Errorf("failed to create sync run %s: %w", runID, err)
	}
	return nil
}

// UpdateRunStatus applies only the fields the patch carries. Terminal
// statuses also stamp finished_at.
func (r *SyncRunsRepository) UpdateRunStatus(runID string, patch models.RunStatusPatch) error {
	sets := []string{}
	args := []interface{}{runID}

	appendSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Status != nil {
		appendSet("status", string(*patch.Status))
		if *patch.Status == models.RunCompleted || *patch.Status == models.RunError {
			sets = append(sets, "finished_at = now()")
		}
	}
	if patch.Progress != nil {
		appendSet("progress", *patch.Progress)
	}
	if patch.Total != nil {
		appendSet("total", *patch.Total)
	}
	if patch.CurrentItem != nil {
		appendSet("current_item", *patch.CurrentItem)
	}
	if patch.ErrorMessage != nil {
		appendSet("error_message", *patch.ErrorMessage)
	}

	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE pricewatch.sync_runs SET %s WHERE id = $1`, strings.Join(sets, ", "))
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update sync run %s: %w", runID, err)
	}
	return nil
}

func (r *SyncRunsRepository) GetRun(runID string) (*models.SyncRunStatus, error) {
	query := `
		SELECT id, status, progress, total, current_item, error_message, started_at, finished_at
		FROM pricewatch.sync_runs
		WHERE id = $1`

	var run models.SyncRunStatus
	var currentItem, errorMessage sql.NullString
	var finishedAt sql.NullTime

	err := r.db.QueryRow(query, runID).Scan(
		&run.ID, &run.Status, &run.Progress, &run.Total,
		&currentItem, &errorMessage, &run.StartedAt, &finishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sync run %s: %w", runID, err)
	}

	run.CurrentItem = currentItem.String
	run.ErrorMessage = errorMessage.String
	if finishedAt.Valid {
		at := finishedAt.Time
		run.FinishedAt = &at
	}
	return &run, nil
}
