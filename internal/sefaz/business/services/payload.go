package services

import (
	"strconv"
	"strings"

	"gopricewatch_api/config/values"
	"gopricewatch_api/internal/sefaz/business/models"
	"gopricewatch_api/pkg/business/service"
)

const maxDescLength = 100
const cnpjLength = 14

// PayloadNormalizer turns search criteria into the exact body shape the
// public API accepts. Anything it lets through is safe to send; anything
// upstream would reject as malformed fails here instead.
type PayloadNormalizer struct {
	text            service.ITextService
	defaultDias     int
	defaultPageSize int
}

func NewPayloadNormalizer(text service.ITextService, vals values.SefazValues) *PayloadNormalizer {
	return &PayloadNormalizer{
		text:            text,
		defaultDias:     vals.DefaultDias,
		defaultPageSize: vals.PageSize,
	}
}

// Normalize builds and validates the request payload for one endpoint.
// dias falls back to the configured default when missing or invalid;
// identifier fields central to the query fail the call instead.
func (n *PayloadNormalizer) Normalize(endpoint string, criteria models.SearchCriteria, dias, pageSize int) (map[string]interface{}, error) {
	if dias <= 0 {
		dias = n.defaultDias
	}
	if pageSize <= 0 {
		pageSize = n.defaultPageSize
	}

	payload := map[string]interface{}{
		"dias":               dias,
		"registrosPorPagina": pageSize,
	}

	switch endpoint {
	case EndpointProductSearch, EndpointFuelSearch:
		produto, err := n.productField(criteria)
		if err != nil {
			return nil, err
		}
		estabelecimento, err := n.establishmentField(criteria)
		if err != nil {
			return nil, err
		}
		payload["produto"] = produto
		payload["estabelecimento"] = estabelecimento
		payload["pagina"] = 1

	case EndpointProductsByGTIN:
		gtin, ok := criteria.GTIN()
		if !ok {
			return nil, &ValidationError{Field: "gtin", Reason: "is required for a GTIN lookup"}
		}
		digits := digitsOnly(gtin)
		if digits == "" {
			return nil, &ValidationError{Field: "gtin", Reason: "must contain digits"}
		}
		payload["gtin"] = digits

	case EndpointProductsByText:
		desc, ok := criteria.Description()
		if !ok {
			return nil, &ValidationError{Field: "descricao", Reason: "is required for a description lookup"}
		}
		cleaned := n.text.ClearAndReduce(desc, maxDescLength)
		if cleaned == "" {
			return nil, &ValidationError{Field: "descricao", Reason: "is empty after cleaning"}
		}
		payload["descricao"] = cleaned

	case EndpointProductsByEstablish:
		cnpjLoc, ok := criteria.Establishment.(models.ByCNPJ)
		if !ok {
			return nil, &ValidationError{Field: "cnpj", Reason: "is required for an establishment lookup"}
		}
		cnpj, err := normalizeCNPJ(cnpjLoc.CNPJ)
		if err != nil {
			return nil, err
		}
		payload["cnpj"] = cnpj

	default:
		return nil, &ValidationError{Field: "endpoint", Reason: "is not a known search endpoint"}
	}

	CleanPayload(payload)

	// Never send a partially-valid payload upstream.
	switch endpoint {
	case EndpointProductSearch, EndpointFuelSearch:
		if _, ok := payload["estabelecimento"]; !ok {
			return nil, &ValidationError{Field: "estabelecimento", Reason: "requires at least one locator"}
		}
		if _, ok := payload["produto"]; !ok {
			return nil, &ValidationError{Field: "produto", Reason: "requires at least one locator"}
		}
	}
	if _, ok := payload["dias"]; !ok {
		return nil, &ValidationError{Field: "dias", Reason: "is required"}
	}

	return payload, nil
}

func (n *PayloadNormalizer) productField(criteria models.SearchCriteria) (map[string]interface{}, error) {
	produto := map[string]interface{}{}
	switch loc := criteria.Product.(type) {
	case models.ByGTIN:
		digits := digitsOnly(loc.GTIN)
		if digits == "" {
			return nil, &ValidationError{Field: "gtin", Reason: "must contain digits"}
		}
		produto["gtin"] = digits
	case models.ByDescription:
		produto["descricao"] = n.text.ClearAndReduce(loc.Descricao, maxDescLength)
	case models.ByFuelType:
		if loc.TipoCombustivel <= 0 {
			return nil, &ValidationError{Field: "tipoCombustivel", Reason: "must be a positive code"}
		}
		produto["tipoCombustivel"] = loc.TipoCombustivel
	}
	return produto, nil
}

func (n *PayloadNormalizer) establishmentField(criteria models.SearchCriteria) (map[string]interface{}, error) {
	estabelecimento := map[string]interface{}{}
	switch loc := criteria.Establishment.(type) {
	case models.ByCNPJ:
		cnpj, err := normalizeCNPJ(loc.CNPJ)
		if err != nil {
			return nil, err
		}
		estabelecimento["individual"] = map[string]interface{}{"cnpj": cnpj}
	case models.ByMunicipality:
		digits := digitsOnly(loc.CodigoIBGE)
		code, err := strconv.Atoi(digits)
		if err != nil {
			return nil, &ValidationError{Field: "codigoIBGE", Reason: "must be numeric"}
		}
		estabelecimento["municipio"] = map[string]interface{}{"codigoIBGE": code}
	case models.ByGeo:
		if loc.RaioKm <= 0 {
			return nil, &ValidationError{Field: "raio", Reason: "must be a positive distance"}
		}
		estabelecimento["geolocalizacao"] = map[string]interface{}{
			"latitude":  loc.Latitude,
			"longitude": loc.Longitude,
			"raio":      loc.RaioKm,
		}
	}
	return estabelecimento, nil
}

func normalizeCNPJ(raw string) (string, error) {
	digits := digitsOnly(raw)
	if len(digits) != cnpjLength {
		return "", &ValidationError{Field: "cnpj", Reason: "must be exactly 14 digits"}
	}
	return digits, nil
}

func digitsOnly(s string) string {
	var builder strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// CleanPayload recursively removes empty strings, nils and empty nested
// maps/slices in place, so the upstream never sees a field it rejects.
func CleanPayload(payload map[string]interface{}) {
	for key, value := range payload {
		switch v := value.(type) {
		case nil:
			delete(payload, key)
		case string:
			if strings.TrimSpace(v) == "" {
				delete(payload, key)
			}
		case map[string]interface{}:
			CleanPayload(v)
			if len(v) == 0 {
				delete(payload, key)
			}
		case []interface{}:
			cleaned := cleanSlice(v)
			if len(cleaned) == 0 {
				delete(payload, key)
			} else {
				payload[key] = cleaned
			}
		}
	}
}

func cleanSlice(in []interface{}) []interface{} {
	out := in[:0]
	for _, value := range in {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
		case map[string]interface{}:
			CleanPayload(v)
			if len(v) == 0 {
				continue
			}
		}
		out = append(out, value)
	}
	return out
}
