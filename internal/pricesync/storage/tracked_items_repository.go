package storage

import (
	"database/sql"
	"fmt"

	"gopricewatch_api/internal/pricesync/models"
	sefaz "gopricewatch_api/internal/sefaz/business/models"
)

type TrackedItemsRepository struct {
	db *sql.DB
}

func NewTrackedItemsRepository(db *sql.DB) *TrackedItemsRepository {
	return &TrackedItemsRepository{db: db}
}

const trackedItemColumns = `
	id, user_id, kind, nickname, gtin, descricao, tipo_combustivel,
	cnpj, codigo_ibge, latitude, longitude, raio_km, dias,
	last_price, trend, last_updated_at`

// FetchActiveTrackedItems returns the active items in scope, in table
// order. No explicit sort is imposed.
func (r *TrackedItemsRepository) FetchActiveTrackedItems(scope models.Scope) ([]models.TrackedItem, error) {
	query := `SELECT ` + trackedItemColumns + `
		FROM pricewatch.tracked_items
		WHERE is_active = TRUE`

	var rows *sql.Rows
	var err error
	if scope.AllUsers {
		rows, err = r.db.Query(query)
	} else {
		rows, err = r.db.Query(query+` AND user_id = $1`, scope.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tracked items: %w", err)
	}
	defer rows.Close()

	var items []models.TrackedItem
	for rows.Next() {
		item, err := scanTrackedItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading tracked item rows: %w", err)
	}
	return items, nil
}

func scanTrackedItem(rows *sql.Rows) (models.TrackedItem, error) {
	var item models.TrackedItem
	var nickname, gtin, descricao, cnpj, codigoIBGE, trend sql.NullString
	var tipoCombustivel, raioKm sql.NullInt64
	var latitude, longitude sql.NullFloat64
	var lastPrice sql.NullFloat64
	var lastUpdatedAt sql.NullTime

	err := rows.Scan(
		&item.ID, &item.UserID, &item.Kind, &nickname, &gtin, &descricao, &tipoCombustivel,
		&cnpj, &codigoIBGE, &latitude, &longitude, &raioKm, &item.Dias,
		&lastPrice, &trend, &lastUpdatedAt,
	)
	if err != nil {
		return item, fmt.Errorf("failed to scan tracked item: %w", err)
	}

	item.Nickname = nickname.String
	item.FallbackDescription = descricao.String
	item.IsActive = true
	item.Trend = trend.String
	if lastPrice.Valid {
		price := lastPrice.Float64
		item.LastPrice = &price
	}
	if lastUpdatedAt.Valid {
		at := lastUpdatedAt.Time
		item.LastUpdatedAt = &at
	}

	// The column layout guarantees at most one locator per axis; first
	// match wins on a corrupted row.
	switch {
	case gtin.Valid && gtin.String != "":
		item.Criteria.Product = sefaz.ByGTIN{GTIN: gtin.String}
	case tipoCombustivel.Valid && tipoCombustivel.Int64 > 0:
		item.Criteria.Product = sefaz.ByFuelType{TipoCombustivel: int(tipoCombustivel.Int64)}
	case descricao.Valid && descricao.String != "":
		item.Criteria.Product = sefaz.ByDescription{Descricao: descricao.String}
	}

	switch {
	case cnpj.Valid && cnpj.String != "":
		item.Criteria.Establishment = sefaz.ByCNPJ{CNPJ: cnpj.String}
	case codigoIBGE.Valid && codigoIBGE.String != "":
		item.Criteria.Establishment = sefaz.ByMunicipality{CodigoIBGE: codigoIBGE.String}
	case latitude.Valid && longitude.Valid:
		item.Criteria.Establishment = sefaz.ByGeo{
			Latitude:  latitude.Float64,
			Longitude: longitude.Float64,
			RaioKm:    int(raioKm.Int64),
		}
	}

	return item, nil
}

// UpdateCachedPrice writes back the last-known price and trend after a
// successful resolution. This is the only mutation the engine performs on
// a tracked item.
func (r *TrackedItemsRepository) UpdateCachedPrice(id int64, price float64, trend string) error {
	query := `
		UPDATE pricewatch.tracked_items
		SET last_price = $2, trend = $3, last_updated_at = now()
		WHERE id = $1`
	if _, err := r.db.Exec(query, id, price, trend); err != nil {
		return fmt.Errorf("failed to update cached price for item %d: %w", id, err)
	}
	return nil
}
