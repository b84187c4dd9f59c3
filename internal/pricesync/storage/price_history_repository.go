package storage

import (
	"database/sql"
	"fmt"

	"gopricewatch_api/internal/pricesync/models"
)

type PriceHistoryRepository struct {
	db *sql.DB
}

func NewPriceHistoryRepository(db *sql.DB) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: db}
}

// Insert appends one observation. This is always an insert, even when the
// price is unchanged from the previous fetch; the table is the audit trail
// of every poll.
func (r *PriceHistoryRepository) Insert(entry models.PriceHistoryEntry) error {
	query := `
		INSERT INTO pricewatch.price_history
			(tracked_item_id, competitor_id, cnpj, valor_venda, valor_declarado, data_venda, fetched_at, raw)
		VALUES
			($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8);
		`
	var raw interface{}
	if len(entry.Raw) > 0 {
		raw = entry.Raw
	}
	_, err := r.db.Exec(query,
		nullableID(entry.TrackedItemID), nullableID(entry.CompetitorID),
		entry.CNPJ, entry.ValorVenda, nullableFloat(entry.ValorDeclarado),
		entry.DataVenda, entry.FetchedAt, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to insert price history for %s: %w", entry.CNPJ, err)
	}
	return nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
