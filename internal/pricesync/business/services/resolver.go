package services

import (
	"context"
	"io"

	"gopricewatch_api/config/values"
	"gopricewatch_api/internal/pricesync/models"
	sefaz "gopricewatch_api/internal/sefaz/business/models"
	"gopricewatch_api/internal/sefaz/business/models/dto/response"
	"gopricewatch_api/internal/sefaz/business/services"
	"gopricewatch_api/pkg/logger"
)

// Searcher is the one call the resolver needs from the SEFAZ engine.
type Searcher interface {
	Search(ctx context.Context, endpoint string, criteria sefaz.SearchCriteria, dias, pageSize int) (*response.SearchResult, error)
}

// FallbackResolver tries progressively looser searches for a tracked item
// until one returns data. A strategy that fails is logged and treated as
// "no result"; it never aborts the resolution.
type FallbackResolver struct {
	searcher Searcher
	pageSize int
	log      logger.Logger
}

func NewFallbackResolver(searcher Searcher, vals values.SefazValues, writer io.Writer) *FallbackResolver {
	return &FallbackResolver{
		searcher: searcher,
		pageSize: vals.PageSize,
		log:      logger.NewLogger(writer, "RESOLVER |"),
	}
}

type searchStrategy struct {
	name       string
	applicable bool
	endpoint   string
	criteria   sefaz.SearchCriteria
}

// Resolve returns the first non-empty result, or nil when every strategy
// came up empty.
func (r *FallbackResolver) Resolve(ctx context.Context, item models.TrackedItem) (*response.SearchResult, error) {
	for _, s := range r.strategiesFor(item) {
		if !s.applicable {
			continue
		}

		result, err := r.searcher.Search(ctx, s.endpoint, s.criteria, item.Dias, r.pageSize)
		if err != nil {
			r.log.Log("strategy %q failed for %s: %v", s.name, item.Label(), err)
			continue
		}
		if !result.IsEmpty() {
			return result, nil
		}
	}
	return nil, nil
}

// ResolveCompetitor prices everything a competitor establishment sells.
func (r *FallbackResolver) ResolveCompetitor(ctx context.Context, competitor models.CompetitorTracking) (*response.SearchResult, error) {
	criteria := sefaz.SearchCriteria{Establishment: sefaz.ByCNPJ{CNPJ: competitor.CNPJ}}

	result, err := r.searcher.Search(ctx, services.EndpointProductsByEstablish, criteria, 0, r.pageSize)
	if err != nil {
		return nil, err
	}
	if result.IsEmpty() {
		return nil, nil
	}
	return result, nil
}

// strategiesFor orders the searches most to least specific. A strategy the
// item's criteria cannot express is marked inapplicable and skipped
// without counting as a failure.
func (r *FallbackResolver) strategiesFor(item models.TrackedItem) []searchStrategy {
	searchEndpoint := services.EndpointProductSearch
	if item.Kind == models.KindFuel {
		searchEndpoint = services.EndpointFuelSearch
	}

	gtin, hasGTIN := item.Criteria.GTIN()
	desc, hasDesc := item.Criteria.Description()
	if !hasDesc && item.FallbackDescription != "" {
		desc, hasDesc = item.FallbackDescription, true
	}

	return []searchStrategy{
		{
			name:       "product+establishment",
			applicable: item.Criteria.HasProduct() && item.Criteria.HasEstablishment(),
			endpoint:   searchEndpoint,
			criteria:   item.Criteria,
		},
		{
			name:       "identifier alone",
			applicable: hasGTIN,
			endpoint:   services.EndpointProductsByGTIN,
			criteria:   sefaz.SearchCriteria{Product: sefaz.ByGTIN{GTIN: gtin}},
		},
		{
			name:       "description alone",
			applicable: hasDesc,
			endpoint:   services.EndpointProductsByText,
			criteria:   sefaz.SearchCriteria{Product: sefaz.ByDescription{Descricao: desc}},
		},
	}
}
