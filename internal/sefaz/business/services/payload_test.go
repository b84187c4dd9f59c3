package services

import (
	"strings"
	"testing"

	"gopricewatch_api/config/values"
	"gopricewatch_api/internal/sefaz/business/models"
	"gopricewatch_api/pkg/business/service"
)

func newTestNormalizer() *PayloadNormalizer {
	return NewPayloadNormalizer(service.NewTextService(), values.SefazValues{}.WithDefaults())
}

func TestNormalizeFormatsCNPJAndKeepsDias(t *testing.T) {
	n := newTestNormalizer()
	criteria := models.SearchCriteria{
		Establishment: models.ByCNPJ{CNPJ: "12.345.678/0001-95"},
		Product:       models.ByGTIN{GTIN: "7894900011517"},
	}

	payload, err := n.Normalize(EndpointProductSearch, criteria, 10, 0)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	if payload["dias"] != 10 {
		t.Errorf("dias = %v, want 10", payload["dias"])
	}

	estabelecimento, ok := payload["estabelecimento"].(map[string]interface{})
	if !ok {
		t.Fatalf("estabelecimento missing from payload: %v", payload)
	}
	individual, ok := estabelecimento["individual"].(map[string]interface{})
	if !ok {
		t.Fatalf("individual missing from estabelecimento: %v", estabelecimento)
	}
	if individual["cnpj"] != "12345678000195" {
		t.Errorf("cnpj = %v, want 12345678000195", individual["cnpj"])
	}
}

func TestNormalizeRejectsBadCNPJ(t *testing.T) {
	n := newTestNormalizer()
	for _, cnpj := range []string{"123", "12.345.678/0001-9", "123456780001955", ""} {
		criteria := models.SearchCriteria{
			Establishment: models.ByCNPJ{CNPJ: cnpj},
			Product:       models.ByGTIN{GTIN: "7894900011517"},
		}
		_, err := n.Normalize(EndpointProductSearch, criteria, 1, 0)
		if !IsValidationError(err) {
			t.Errorf("cnpj %q: got %v, want validation error", cnpj, err)
		}
	}
}

func TestNormalizeDefaultsDias(t *testing.T) {
	n := newTestNormalizer()
	criteria := models.SearchCriteria{
		Establishment: models.ByCNPJ{CNPJ: "12345678000195"},
		Product:       models.ByGTIN{GTIN: "7894900011517"},
	}

	for _, dias := range []int{0, -3} {
		payload, err := n.Normalize(EndpointProductSearch, criteria, dias, 0)
		if err != nil {
			t.Fatalf("Normalize(dias=%d) returned error: %v", dias, err)
		}
		if payload["dias"] != 1 {
			t.Errorf("dias = %v, want default 1", payload["dias"])
		}
	}
}

func TestNormalizeRequiresEstablishmentOnSearchEndpoints(t *testing.T) {
	n := newTestNormalizer()
	criteria := models.SearchCriteria{Product: models.ByGTIN{GTIN: "7894900011517"}}

	for _, endpoint := range []string{EndpointProductSearch, EndpointFuelSearch} {
		_, err := n.Normalize(endpoint, criteria, 1, 0)
		if !IsValidationError(err) {
			t.Errorf("%s without establishment: got %v, want validation error", endpoint, err)
		}
	}
}

func TestNormalizeFuelSearch(t *testing.T) {
	n := newTestNormalizer()
	criteria := models.SearchCriteria{
		Establishment: models.ByMunicipality{CodigoIBGE: "2704302"},
		Product:       models.ByFuelType{TipoCombustivel: 1},
	}

	payload, err := n.Normalize(EndpointFuelSearch, criteria, 3, 0)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	produto := payload["produto"].(map[string]interface{})
	if produto["tipoCombustivel"] != 1 {
		t.Errorf("tipoCombustivel = %v, want 1", produto["tipoCombustivel"])
	}
	estabelecimento := payload["estabelecimento"].(map[string]interface{})
	municipio := estabelecimento["municipio"].(map[string]interface{})
	if municipio["codigoIBGE"] != 2704302 {
		t.Errorf("codigoIBGE = %v, want 2704302", municipio["codigoIBGE"])
	}
}

func TestNormalizeGTINLookupStripsSeparators(t *testing.T) {
	n := newTestNormalizer()
	criteria := models.SearchCriteria{Product: models.ByGTIN{GTIN: "789-4900.011517"}}

	payload, err := n.Normalize(EndpointProductsByGTIN, criteria, 0, 0)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if payload["gtin"] != "7894900011517" {
		t.Errorf("gtin = %v, want 7894900011517", payload["gtin"])
	}
	if _, ok := payload["estabelecimento"]; ok {
		t.Error("gtin lookup must not carry an estabelecimento field")
	}
}

func TestNormalizeDescriptionIsFoldedAndBounded(t *testing.T) {
	n := newTestNormalizer()
	long := strings.Repeat("Açúcar Cristal ", 20)
	criteria := models.SearchCriteria{Product: models.ByDescription{Descricao: long}}

	payload, err := n.Normalize(EndpointProductsByText, criteria, 0, 0)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	desc, ok := payload["descricao"].(string)
	if !ok {
		t.Fatalf("descricao missing from payload: %v", payload)
	}
	if len(desc) > 100 {
		t.Errorf("descricao is %d bytes, want at most 100", len(desc))
	}
	if !strings.HasPrefix(desc, "ACUCAR CRISTAL") {
		t.Errorf("descricao = %q, want folded uppercase without accents", desc)
	}
}

func TestNormalizeEstablishmentLookupRequiresCNPJ(t *testing.T) {
	n := newTestNormalizer()
	criteria := models.SearchCriteria{Establishment: models.ByMunicipality{CodigoIBGE: "2704302"}}

	_, err := n.Normalize(EndpointProductsByEstablish, criteria, 0, 0)
	if !IsValidationError(err) {
		t.Errorf("got %v, want validation error for missing cnpj", err)
	}
}

func TestNormalizeUnknownEndpoint(t *testing.T) {
	n := newTestNormalizer()
	_, err := n.Normalize("produto/unknown", models.SearchCriteria{}, 1, 0)
	if !IsValidationError(err) {
		t.Errorf("got %v, want validation error for unknown endpoint", err)
	}
}

func TestNormalizedPayloadHasNoEmptyFields(t *testing.T) {
	n := newTestNormalizer()
	criteria := models.SearchCriteria{
		Establishment: models.ByCNPJ{CNPJ: "12345678000195"},
		Product:       models.ByGTIN{GTIN: "7894900011517"},
	}

	payload, err := n.Normalize(EndpointProductSearch, criteria, 1, 0)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	assertNoEmptyValues(t, "", payload)
}

func assertNoEmptyValues(t *testing.T, path string, payload map[string]interface{}) {
	t.Helper()
	for key, value := range payload {
		switch v := value.(type) {
		case nil:
			t.Errorf("payload field %s.%s is nil", path, key)
		case string:
			if strings.TrimSpace(v) == "" {
				t.Errorf("payload field %s.%s is an empty string", path, key)
			}
		case map[string]interface{}:
			if len(v) == 0 {
				t.Errorf("payload field %s.%s is an empty map", path, key)
			}
			assertNoEmptyValues(t, path+"."+key, v)
		}
	}
}

func TestCleanPayloadStripsEmptyValues(t *testing.T) {
	payload := map[string]interface{}{
		"dias":  1,
		"empty": "",
		"blank": "   ",
		"none":  nil,
		"nested": map[string]interface{}{
			"inner": "",
		},
		"list": []interface{}{"", nil, map[string]interface{}{}},
		"kept": map[string]interface{}{
			"cnpj": "12345678000195",
		},
	}

	CleanPayload(payload)

	if len(payload) != 2 {
		t.Fatalf("payload has %d keys after cleaning, want 2: %v", len(payload), payload)
	}
	if payload["dias"] != 1 {
		t.Errorf("dias was dropped: %v", payload)
	}
	if _, ok := payload["kept"]; !ok {
		t.Errorf("non-empty nested map was dropped: %v", payload)
	}
}
