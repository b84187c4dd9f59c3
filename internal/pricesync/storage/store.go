package storage

import (
	"database/sql"
	"encoding/json"
	"io"
	"time"

	"gopricewatch_api/internal/pricesync/models"
	"gopricewatch_api/internal/sefaz/business/models/dto/response"
	"gopricewatch_api/pkg/logger"
)

// PriceHistoryStore persists a resolved search result: establishments are
// upserted by CNPJ, price observations are appended. A failure on one
// record is logged and never aborts its siblings.
type PriceHistoryStore struct {
	establishments *EstablishmentsRepository
	history        *PriceHistoryRepository
	tracked        *TrackedItemsRepository
	log            logger.Logger
}

func NewPriceHistoryStore(db *sql.DB, writer io.Writer) *PriceHistoryStore {
	return &PriceHistoryStore{
		establishments: NewEstablishmentsRepository(db),
		history:        NewPriceHistoryRepository(db),
		tracked:        NewTrackedItemsRepository(db),
		log:            logger.NewLogger(writer, "STORE |"),
	}
}

func (s *PriceHistoryStore) Persist(result *response.SearchResult, item models.TrackedItem) error {
	itemID := item.ID
	s.persistOffers(result, &itemID, nil)

	// Cached last-price/trend write-back from the first observation.
	if len(result.Conteudo) > 0 {
		price := result.Conteudo[0].Produto.Venda.ValorVenda
		trend := models.TrendStable
		if item.LastPrice != nil {
			if price > *item.LastPrice {
				trend = models.TrendUp
			} else if price < *item.LastPrice {
				trend = models.TrendDown
			}
		}
		if err := s.tracked.UpdateCachedPrice(item.ID, price, trend); err != nil {
			s.log.Log("cached price write-back failed for %s: %v", item.Label(), err)
		}
	}
	return nil
}

func (s *PriceHistoryStore) PersistCompetitor(result *response.SearchResult, competitor models.CompetitorTracking) error {
	competitorID := competitor.ID
	s.persistOffers(result, nil, &competitorID)
	return nil
}

func (s *PriceHistoryStore) persistOffers(result *response.SearchResult, itemID, competitorID *int64) {
	fetchedAt := time.Now()

	for _, offer := range result.Conteudo {
		if offer.Estabelecimento.CNPJ == "" {
			s.log.Log("skipping offer without establishment CNPJ")
			continue
		}

		if err := s.establishments.Upsert(establishmentRecord(offer.Estabelecimento)); err != nil {
			s.log.Log("establishment upsert failed: %v", err)
			continue
		}

		if err := s.history.Insert(historyEntry(offer, itemID, competitorID, fetchedAt)); err != nil {
			s.log.Log("price history insert failed: %v", err)
		}
	}
}

func establishmentRecord(e response.Establishment) models.EstablishmentRecord {
	return models.EstablishmentRecord{
		CNPJ:         e.CNPJ,
		RazaoSocial:  e.RazaoSocial,
		NomeFantasia: e.NomeFantasia,
		Logradouro:   e.Endereco.NomeLogradouro,
		Numero:       e.Endereco.NumeroImovel,
		Bairro:       e.Endereco.Bairro,
		Municipio:    e.Endereco.Municipio,
		UF:           e.Endereco.UF,
		CEP:          e.Endereco.CEP,
	}
}

func historyEntry(offer response.Offer, itemID, competitorID *int64, fetchedAt time.Time) models.PriceHistoryEntry {
	entry := models.PriceHistoryEntry{
		TrackedItemID: itemID,
		CompetitorID:  competitorID,
		CNPJ:          offer.Estabelecimento.CNPJ,
		ValorVenda:    offer.Produto.Venda.ValorVenda,
		DataVenda:     offer.Produto.Venda.DataVenda,
		FetchedAt:     fetchedAt,
	}
	if offer.Produto.Venda.ValorDeclarado > 0 {
		declared := offer.Produto.Venda.ValorDeclarado
		entry.ValorDeclarado = &declared
	}
	if raw, err := json.Marshal(offer); err == nil {
		entry.Raw = raw
	}
	return entry
}
