package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	gosync "sync"
	"time"

	"gopricewatch_api/config/values"
	"gopricewatch_api/internal/pricesync/models"
	"gopricewatch_api/internal/sefaz/business/models/dto/response"
	"gopricewatch_api/metrics"
	"gopricewatch_api/pkg/logger"
)

// ErrRunInProgress is returned when a run is requested for a scope that
// already has one in flight in this process.
var ErrRunInProgress = errors.New("sync run already in progress for this scope")

type ItemSource interface {
	FetchActiveTrackedItems(scope models.Scope) ([]models.TrackedItem, error)
}

type CompetitorSource interface {
	FetchActiveCompetitors(scope models.Scope) ([]models.CompetitorTracking, error)
}

type Resolver interface {
	Resolve(ctx context.Context, item models.TrackedItem) (*response.SearchResult, error)
	ResolveCompetitor(ctx context.Context, competitor models.CompetitorTracking) (*response.SearchResult, error)
}

type HistoryStore interface {
	Persist(result *response.SearchResult, item models.TrackedItem) error
	PersistCompetitor(result *response.SearchResult, competitor models.CompetitorTracking) error
}

type RunStatusStore interface {
	CreateRun(runID string, total int) error
	UpdateRunStatus(runID string, patch models.RunStatusPatch) error
}

type RunResult struct {
	Processed int           `json:"processed"`
	Errors    int           `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

// Processor walks every active tracked item and competitor entry in scope,
// resolves current prices and persists them. Items are processed strictly
// sequentially, in small batches with deliberate delays, to stay under the
// upstream rate limit.
type Processor struct {
	items       ItemSource
	competitors CompetitorSource
	resolver    Resolver
	store       HistoryStore
	runs        RunStatusStore
	vals        values.SyncValues
	log         logger.Logger

	mu       gosync.Mutex
	inFlight map[string]struct{}
}

func NewProcessor(
	items ItemSource,
	competitors CompetitorSource,
	resolver Resolver,
	store HistoryStore,
	runs RunStatusStore,
	vals values.SyncValues,
	writer io.Writer,
) *Processor {
	return &Processor{
		items:       items,
		competitors: competitors,
		resolver:    resolver,
		store:       store,
		runs:        runs,
		vals:        vals,
		log:         logger.NewLogger(writer, "SYNC |"),
		inFlight:    make(map[string]struct{}),
	}
}

type syncTask struct {
	label   string
	resolve func(ctx context.Context) (bool, error)
}

// Run executes one synchronization pass over the scope. Per-item failures
// are counted and logged but never stop the run; only a systemic failure
// (source unreachable, context gone) aborts it.
func (p *Processor) Run(ctx context.Context, scope models.Scope, runID, source string) (RunResult, error) {
	start := time.Now()
	scopeKey := scope.String()

	if !p.acquire(scopeKey) {
		return RunResult{}, ErrRunInProgress
	}
	defer p.release(scopeKey)

	p.log.Log("run starting (scope=%s source=%s)", scopeKey, source)

	tasks, err := p.collectTasks(scope)
	if err != nil {
		p.failRun(runID, err)
		metrics.RecordSyncRun(scopeKey, string(models.RunError))
		return RunResult{}, err
	}

	status := newStatusTracker(p.runs, runID, p.log)
	status.start(len(tasks))

	if len(tasks) == 0 {
		status.complete(0)
		metrics.RecordSyncRun(scopeKey, string(models.RunCompleted))
		return RunResult{Duration: time.Since(start)}, nil
	}

	counters := &metrics.RunCounters{}
	done := 0

	for batchStart := 0; batchStart < len(tasks); batchStart += p.vals.BatchSize {
		batchEnd := batchStart + p.vals.BatchSize
		if batchEnd > len(tasks) {
			batchEnd = len(tasks)
		}

		for _, task := range tasks[batchStart:batchEnd] {
			status.before(done, len(tasks), task.label)

			p.processTask(ctx, task, counters)

			done++
			status.after(done, len(tasks))

			if done < len(tasks) {
				if err := sleepCtx(ctx, p.vals.ItemDelay()); err != nil {
					p.failRun(runID, err)
					metrics.RecordSyncRun(scopeKey, string(models.RunError))
					return p.result(counters, start), err
				}
			}
		}

		if batchEnd < len(tasks) {
			if err := sleepCtx(ctx, p.vals.BatchDelay()); err != nil {
				p.failRun(runID, err)
				metrics.RecordSyncRun(scopeKey, string(models.RunError))
				return p.result(counters, start), err
			}
		}
	}

	status.complete(len(tasks))
	metrics.RecordSyncRun(scopeKey, string(models.RunCompleted))

	result := p.result(counters, start)
	p.log.Log("run finished (scope=%s): processed=%d errors=%d in %s",
		scopeKey, result.Processed, result.Errors, result.Duration)
	return result, nil
}

func (p *Processor) collectTasks(scope models.Scope) ([]syncTask, error) {
	items, err := p.items.FetchActiveTrackedItems(scope)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tracked items: %w", err)
	}
	competitors, err := p.competitors.FetchActiveCompetitors(scope)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch competitor trackings: %w", err)
	}

	tasks := make([]syncTask, 0, len(items)+len(competitors))
	for _, item := range items {
		item := item
		tasks = append(tasks, syncTask{
			label: item.Label(),
			resolve: func(ctx context.Context) (bool, error) {
				result, err := p.resolver.Resolve(ctx, item)
				if err != nil {
					return false, err
				}
				if result.IsEmpty() {
					return false, nil
				}
				if err := p.store.Persist(result, item); err != nil {
					return false, err
				}
				return true, nil
			},
		})
	}
	for _, competitor := range competitors {
		competitor := competitor
		tasks = append(tasks, syncTask{
			label: competitor.Label(),
			resolve: func(ctx context.Context) (bool, error) {
				result, err := p.resolver.ResolveCompetitor(ctx, competitor)
				if err != nil {
					return false, err
				}
				if result.IsEmpty() {
					return false, nil
				}
				if err := p.store.PersistCompetitor(result, competitor); err != nil {
					return false, err
				}
				return true, nil
			},
		})
	}
	return tasks, nil
}

func (p *Processor) processTask(ctx context.Context, task syncTask, counters *metrics.RunCounters) {
	resolved, err := task.resolve(ctx)
	if err != nil {
		counters.ErroredCount.Add(1)
		metrics.RecordSyncItem("error")
		p.log.Log("%s did not update this cycle: %v", task.label, err)
		return
	}
	if !resolved {
		counters.ErroredCount.Add(1)
		metrics.RecordSyncItem("error")
		p.log.Log("%s did not update this cycle: no strategy returned data", task.label)
		return
	}
	counters.ProcessedCount.Add(1)
	metrics.RecordSyncItem("processed")
}

func (p *Processor) result(counters *metrics.RunCounters, start time.Time) RunResult {
	return RunResult{
		Processed: int(counters.ProcessedCount.Load()),
		Errors:    int(counters.ErroredCount.Load()),
		Duration:  time.Since(start),
	}
}

func (p *Processor) failRun(runID string, cause error) {
	status := newStatusTracker(p.runs, runID, p.log)
	status.fail(cause)
}

func (p *Processor) acquire(scopeKey string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.inFlight[scopeKey]; exists {
		return false
	}
	p.inFlight[scopeKey] = struct{}{}
	return true
}

func (p *Processor) release(scopeKey string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, scopeKey)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
