package sync

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"gopricewatch_api/config/values"
	"gopricewatch_api/internal/pricesync/models"
	sefaz "gopricewatch_api/internal/sefaz/business/models"
	"gopricewatch_api/internal/sefaz/business/models/dto/response"
)

type fakeItemSource struct {
	items     []models.TrackedItem
	err       error
	lastScope models.Scope
}

func (f *fakeItemSource) FetchActiveTrackedItems(scope models.Scope) ([]models.TrackedItem, error) {
	f.lastScope = scope
	return f.items, f.err
}

type fakeCompetitorSource struct {
	competitors []models.CompetitorTracking
	err         error
}

func (f *fakeCompetitorSource) FetchActiveCompetitors(scope models.Scope) ([]models.CompetitorTracking, error) {
	return f.competitors, f.err
}

type fakeResolver struct {
	mu            sync.Mutex
	itemCalls     map[int64]int
	resolveItem   func(item models.TrackedItem) (*response.SearchResult, error)
	resolveComp   func(competitor models.CompetitorTracking) (*response.SearchResult, error)
	competitorIDs []int64
}

func (f *fakeResolver) Resolve(ctx context.Context, item models.TrackedItem) (*response.SearchResult, error) {
	f.mu.Lock()
	if f.itemCalls == nil {
		f.itemCalls = make(map[int64]int)
	}
	f.itemCalls[item.ID]++
	f.mu.Unlock()
	return f.resolveItem(item)
}

func (f *fakeResolver) ResolveCompetitor(ctx context.Context, competitor models.CompetitorTracking) (*response.SearchResult, error) {
	f.mu.Lock()
	f.competitorIDs = append(f.competitorIDs, competitor.ID)
	f.mu.Unlock()
	if f.resolveComp == nil {
		return priceResult(), nil
	}
	return f.resolveComp(competitor)
}

type fakeHistoryStore struct {
	persistedItems       []int64
	persistedCompetitors []int64
	err                  error
}

func (f *fakeHistoryStore) Persist(result *response.SearchResult, item models.TrackedItem) error {
	f.persistedItems = append(f.persistedItems, item.ID)
	return f.err
}

func (f *fakeHistoryStore) PersistCompetitor(result *response.SearchResult, competitor models.CompetitorTracking) error {
	f.persistedCompetitors = append(f.persistedCompetitors, competitor.ID)
	return f.err
}

type fakeRunStore struct {
	mu           sync.Mutex
	createdTotal int
	created      bool
	patches      []models.RunStatusPatch
}

func (f *fakeRunStore) CreateRun(runID string, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = true
	f.createdTotal = total
	return nil
}

func (f *fakeRunStore) UpdateRunStatus(runID string, patch models.RunStatusPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	return nil
}

func (f *fakeRunStore) finalStatus() (models.RunStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.patches) - 1; i >= 0; i-- {
		if f.patches[i].Status != nil {
			return *f.patches[i].Status, true
		}
	}
	return "", false
}

func priceResult() *response.SearchResult {
	return &response.SearchResult{
		TotalRegistros: 1,
		Conteudo: []response.Offer{{
			Produto:         response.Product{GTIN: "7894900011517", Venda: response.Sale{ValorVenda: 9.5}},
			Estabelecimento: response.Establishment{CNPJ: "12345678000195"},
		}},
	}
}

func trackedItems(n int) []models.TrackedItem {
	items := make([]models.TrackedItem, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, models.TrackedItem{
			ID:   int64(i),
			Kind: models.KindProduct,
			Criteria: sefaz.SearchCriteria{
				Establishment: sefaz.ByCNPJ{CNPJ: "12345678000195"},
				Product:       sefaz.ByGTIN{GTIN: "7894900011517"},
			},
			Dias: 1,
		})
	}
	return items
}

func fastValues() values.SyncValues {
	return values.SyncValues{BatchSize: 3, ItemDelayMs: 1, BatchDelayMs: 1}
}

func newTestProcessor(items *fakeItemSource, competitors *fakeCompetitorSource, resolver *fakeResolver, store *fakeHistoryStore, runs *fakeRunStore) *Processor {
	return NewProcessor(items, competitors, resolver, store, runs, fastValues(), io.Discard)
}

func TestRunCountsFailuresWithoutStoppingTheCycle(t *testing.T) {
	resolver := &fakeResolver{resolveItem: func(item models.TrackedItem) (*response.SearchResult, error) {
		if item.ID == 2 {
			return nil, errors.New("upstream exploded")
		}
		return priceResult(), nil
	}}
	store := &fakeHistoryStore{}
	runs := &fakeRunStore{}
	p := newTestProcessor(&fakeItemSource{items: trackedItems(4)}, &fakeCompetitorSource{}, resolver, store, runs)

	result, err := p.Run(context.Background(), models.ScopeAllUsers(), "run-1", "test")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Processed != 3 || result.Errors != 1 {
		t.Errorf("result = processed %d errors %d, want 3 and 1", result.Processed, result.Errors)
	}
	for id := int64(1); id <= 4; id++ {
		if resolver.itemCalls[id] != 1 {
			t.Errorf("item %d resolved %d times, want exactly once", id, resolver.itemCalls[id])
		}
	}
	if len(store.persistedItems) != 3 {
		t.Errorf("persisted %d items, want 3", len(store.persistedItems))
	}
	if status, ok := runs.finalStatus(); !ok || status != models.RunCompleted {
		t.Errorf("final run status = %v, want %v", status, models.RunCompleted)
	}
	if runs.createdTotal != 4 {
		t.Errorf("run created with total %d, want 4", runs.createdTotal)
	}
}

func TestRunWithEmptyScope(t *testing.T) {
	runs := &fakeRunStore{}
	p := newTestProcessor(&fakeItemSource{}, &fakeCompetitorSource{}, &fakeResolver{}, &fakeHistoryStore{}, runs)

	result, err := p.Run(context.Background(), models.ScopeUser(7), "run-2", "test")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Processed != 0 || result.Errors != 0 {
		t.Errorf("result = processed %d errors %d, want zeros", result.Processed, result.Errors)
	}
	if status, ok := runs.finalStatus(); !ok || status != models.RunCompleted {
		t.Errorf("final run status = %v, want %v", status, models.RunCompleted)
	}
}

func TestRunPassesScopeToSources(t *testing.T) {
	items := &fakeItemSource{}
	p := newTestProcessor(items, &fakeCompetitorSource{}, &fakeResolver{}, &fakeHistoryStore{}, &fakeRunStore{})

	if _, err := p.Run(context.Background(), models.ScopeUser(42), "", "test"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if items.lastScope.AllUsers || items.lastScope.UserID != 42 {
		t.Errorf("scope seen by source = %+v, want user 42", items.lastScope)
	}
}

func TestRunTreatsNoDataAsAnError(t *testing.T) {
	resolver := &fakeResolver{resolveItem: func(models.TrackedItem) (*response.SearchResult, error) {
		return nil, nil
	}}
	store := &fakeHistoryStore{}
	p := newTestProcessor(&fakeItemSource{items: trackedItems(1)}, &fakeCompetitorSource{}, resolver, store, &fakeRunStore{})

	result, err := p.Run(context.Background(), models.ScopeAllUsers(), "", "test")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Processed != 0 || result.Errors != 1 {
		t.Errorf("result = processed %d errors %d, want 0 and 1", result.Processed, result.Errors)
	}
	if len(store.persistedItems) != 0 {
		t.Error("an empty resolution must not be persisted")
	}
}

func TestRunTreatsPersistFailureAsAnError(t *testing.T) {
	resolver := &fakeResolver{resolveItem: func(models.TrackedItem) (*response.SearchResult, error) {
		return priceResult(), nil
	}}
	store := &fakeHistoryStore{err: errors.New("database gone")}
	p := newTestProcessor(&fakeItemSource{items: trackedItems(2)}, &fakeCompetitorSource{}, resolver, store, &fakeRunStore{})

	result, err := p.Run(context.Background(), models.ScopeAllUsers(), "", "test")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Processed != 0 || result.Errors != 2 {
		t.Errorf("result = processed %d errors %d, want 0 and 2", result.Processed, result.Errors)
	}
}

func TestRunAbortsOnSourceFailure(t *testing.T) {
	runs := &fakeRunStore{}
	items := &fakeItemSource{err: errors.New("database gone")}
	p := newTestProcessor(items, &fakeCompetitorSource{}, &fakeResolver{}, &fakeHistoryStore{}, runs)

	_, err := p.Run(context.Background(), models.ScopeAllUsers(), "run-3", "test")
	if err == nil {
		t.Fatal("Run succeeded with an unreachable item source")
	}
	if status, ok := runs.finalStatus(); !ok || status != models.RunError {
		t.Errorf("final run status = %v, want %v", status, models.RunError)
	}
}

func TestRunIncludesCompetitors(t *testing.T) {
	resolver := &fakeResolver{resolveItem: func(models.TrackedItem) (*response.SearchResult, error) {
		return priceResult(), nil
	}}
	store := &fakeHistoryStore{}
	competitors := &fakeCompetitorSource{competitors: []models.CompetitorTracking{
		{ID: 10, CNPJ: "12345678000195"},
		{ID: 11, CNPJ: "98765432000100"},
	}}
	p := newTestProcessor(&fakeItemSource{items: trackedItems(1)}, competitors, resolver, store, &fakeRunStore{})

	result, err := p.Run(context.Background(), models.ScopeAllUsers(), "", "test")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Processed != 3 {
		t.Errorf("Processed = %d, want 3 (1 item + 2 competitors)", result.Processed)
	}
	if len(resolver.competitorIDs) != 2 {
		t.Errorf("resolved %d competitors, want 2", len(resolver.competitorIDs))
	}
	if len(store.persistedCompetitors) != 2 {
		t.Errorf("persisted %d competitor results, want 2", len(store.persistedCompetitors))
	}
}

func TestRunRejectsDuplicateScope(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	var blocked atomic.Bool
	resolver := &fakeResolver{resolveItem: func(models.TrackedItem) (*response.SearchResult, error) {
		// only the first run holds the scope open
		if blocked.CompareAndSwap(false, true) {
			close(started)
			<-block
		}
		return priceResult(), nil
	}}
	p := newTestProcessor(&fakeItemSource{items: trackedItems(1)}, &fakeCompetitorSource{}, resolver, &fakeHistoryStore{}, &fakeRunStore{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(context.Background(), models.ScopeAllUsers(), "", "test")
	}()
	<-started

	if _, err := p.Run(context.Background(), models.ScopeAllUsers(), "", "test"); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("got %v, want ErrRunInProgress", err)
	}

	// A different scope is not blocked by the in-flight run.
	if _, err := p.Run(context.Background(), models.ScopeUser(1), "", "test"); errors.Is(err, ErrRunInProgress) {
		t.Error("a user-scoped run was blocked by an all-users run")
	}

	close(block)
	<-done

	if _, err := p.Run(context.Background(), models.ScopeAllUsers(), "", "test"); err != nil {
		t.Errorf("scope stayed locked after the run finished: %v", err)
	}
}

func TestRunStopsWhenContextIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	resolver := &fakeResolver{resolveItem: func(item models.TrackedItem) (*response.SearchResult, error) {
		if item.ID == 1 {
			cancel()
		}
		return priceResult(), nil
	}}
	p := newTestProcessor(&fakeItemSource{items: trackedItems(3)}, &fakeCompetitorSource{}, resolver, &fakeHistoryStore{}, &fakeRunStore{})

	_, err := p.Run(ctx, models.ScopeAllUsers(), "", "test")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if resolver.itemCalls[3] != 0 {
		t.Error("items kept resolving after the context was cancelled")
	}
}
