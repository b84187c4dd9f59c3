package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"gopricewatch_api/config/values"
	"gopricewatch_api/internal/sefaz/business/models"
	"gopricewatch_api/internal/sefaz/business/models/dto/response"
	"gopricewatch_api/internal/sefaz/business/services"
	"gopricewatch_api/internal/sefaz/business/services/cache"
	"gopricewatch_api/internal/sefaz/business/services/health"
	"gopricewatch_api/metrics"
	"gopricewatch_api/pkg/logger"
)

const defaultProbeTimeout = 5 * time.Second
const defaultBaseBackoff = 1 * time.Second

// SearchEngine performs price searches against the SEFAZ public API with
// per-attempt timeouts, exponential backoff and a connectivity probe that
// short-circuits calls certain to fail. Every attempt outcome is reported
// to the health tracker, successful or not.
type SearchEngine struct {
	apiURL string
	services.AuthEngine
	client     *http.Client
	normalizer *services.PayloadNormalizer
	cache      *cache.ResponseCache
	health     *health.Tracker
	limiter    *rate.Limiter
	log        logger.Logger

	AttemptTimeout time.Duration
	ProbeTimeout   time.Duration
	BaseBackoff    time.Duration
	MaxAttempts    int
}

func NewSearchEngine(
	apiURL string,
	auth services.AuthEngine,
	normalizer *services.PayloadNormalizer,
	responseCache *cache.ResponseCache,
	tracker *health.Tracker,
	vals values.SefazValues,
	writer io.Writer,
) *SearchEngine {
	return &SearchEngine{
		apiURL:         apiURL,
		AuthEngine:     auth,
		client:         &http.Client{},
		normalizer:     normalizer,
		cache:          responseCache,
		health:         tracker,
		limiter:        rate.NewLimiter(rate.Every(time.Minute/time.Duration(vals.RequestRateLimit)), vals.RequestRateLimit),
		log:            logger.NewLogger(writer, "SEFAZ |"),
		AttemptTimeout: vals.AttemptTimeout(),
		ProbeTimeout:   defaultProbeTimeout,
		BaseBackoff:    defaultBaseBackoff,
		MaxAttempts:    vals.MaxAttempts,
	}
}

// Search runs one logical query. Results are cached under the original
// (pre-normalization) query; the payload itself is re-normalized before
// every attempt.
func (e *SearchEngine) Search(ctx context.Context, endpoint string, criteria models.SearchCriteria, dias, pageSize int) (*response.SearchResult, error) {
	logicalParams := logicalQueryParams(criteria, dias, pageSize)

	if cached, ok := e.cache.Get(endpoint, logicalParams); ok {
		if result, ok := cached.(*response.SearchResult); ok {
			return result, nil
		}
	}

	if err := e.probe(ctx); err != nil {
		return nil, &services.CallError{
			Kind:     services.FailureConnectivity,
			Endpoint: endpoint,
			Message:  "service unavailable, not spending retries",
			Err:      err,
		}
	}

	var lastErr error
	for attempt := 1; attempt <= e.MaxAttempts; attempt++ {
		payload, err := e.normalizer.Normalize(endpoint, criteria, dias, pageSize)
		if err != nil {
			return nil, err
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		start := time.Now()
		result, callErr := e.doAttempt(ctx, endpoint, payload)
		elapsed := time.Since(start)

		e.health.RecordResponse(elapsed.Milliseconds(), callErr == nil)
		metrics.RecordUpstreamAttempt(endpoint, callErr == nil, elapsed)

		if callErr == nil {
			e.cache.Set(endpoint, logicalParams, result, 0)
			return result, nil
		}

		lastErr = callErr
		if !callErr.Kind.Retryable() {
			return nil, callErr
		}

		e.log.Log("attempt %d/%d on %s failed (%s)", attempt, e.MaxAttempts, endpoint, callErr.Kind)

		if attempt < e.MaxAttempts {
			backoff := e.BaseBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", e.MaxAttempts, lastErr)
}

// probe checks the upstream root before the first attempt of a logical
// call. Any HTTP response counts as reachable.
func (e *SearchEngine) probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, e.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, e.apiURL, nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (e *SearchEngine) doAttempt(ctx context.Context, endpoint string, payload map[string]interface{}) (*response.SearchResult, *services.CallError) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.AttemptTimeout)
	defer cancel()

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, &services.CallError{Kind: services.FailureValidation, Endpoint: endpoint, Message: "cannot encode payload", Err: err}
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, e.apiURL+endpoint, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return nil, &services.CallError{Kind: services.FailureValidation, Endpoint: endpoint, Message: "cannot build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if e.AuthEngine != nil {
		e.SetAppToken(req)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(endpoint, attemptCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &services.CallError{Kind: services.FailureUpstreamServer, Endpoint: endpoint, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode >= 500 {
		return nil, &services.CallError{Kind: services.FailureUpstreamServer, Endpoint: endpoint, Message: fmt.Sprintf("upstream returned %s", resp.Status)}
	}
	if resp.StatusCode >= 400 {
		return nil, &services.CallError{Kind: services.FailureUpstreamClient, Endpoint: endpoint, Message: fmt.Sprintf("upstream rejected the request: %s", resp.Status)}
	}

	// An error envelope can arrive on HTTP 200; transport success is not
	// logical success.
	var envelope response.ErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.IsError() {
		return nil, &services.CallError{Kind: services.FailureUpstreamLogical, Endpoint: endpoint, Message: envelope.Message}
	}

	var result response.SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &services.CallError{Kind: services.FailureUpstreamServer, Endpoint: endpoint, Message: "response is not valid JSON", Err: err}
	}

	return &result, nil
}

func classifyTransportError(endpoint string, ctx context.Context, err error) *services.CallError {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return &services.CallError{Kind: services.FailureTimeout, Endpoint: endpoint, Message: "the service took too long to answer", Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &services.CallError{Kind: services.FailureTimeout, Endpoint: endpoint, Message: "the service took too long to answer", Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &services.CallError{Kind: services.FailureNetwork, Endpoint: endpoint, Message: "could not reach the service, check connectivity", Err: err}
	}

	return &services.CallError{Kind: services.FailureNetwork, Endpoint: endpoint, Message: "request failed", Err: err}
}

// logicalQueryParams describes the query as the caller posed it, before
// normalization. It is the cache identity of the call.
func logicalQueryParams(criteria models.SearchCriteria, dias, pageSize int) map[string]interface{} {
	params := map[string]interface{}{
		"dias":               dias,
		"registrosPorPagina": pageSize,
	}
	switch loc := criteria.Product.(type) {
	case models.ByGTIN:
		params["gtin"] = loc.GTIN
	case models.ByDescription:
		params["descricao"] = loc.Descricao
	case models.ByFuelType:
		params["tipoCombustivel"] = loc.TipoCombustivel
	}
	switch loc := criteria.Establishment.(type) {
	case models.ByCNPJ:
		params["cnpj"] = loc.CNPJ
	case models.ByMunicipality:
		params["codigoIBGE"] = loc.CodigoIBGE
	case models.ByGeo:
		params["latitude"] = loc.Latitude
		params["longitude"] = loc.Longitude
		params["raio"] = loc.RaioKm
	}
	return params
}
