package storage

import (
	"database/sql"
	"fmt"

	"gopricewatch_api/internal/pricesync/models"
)

type CompetitorsRepository struct {
	db *sql.DB
}

func NewCompetitorsRepository(db *sql.DB) *CompetitorsRepository {
	return &CompetitorsRepository{db: db}
}

func (r *CompetitorsRepository) FetchActiveCompetitors(scope models.Scope) ([]models.CompetitorTracking, error) {
	query := `
		SELECT id, user_id, cnpj, display_name
		FROM pricewatch.competitor_trackings
		WHERE is_active = TRUE`

	var rows *sql.Rows
	var err error
	if scope.AllUsers {
		rows, err = r.db.Query(query)
	} else {
		rows, err = r.db.Query(query+` AND user_id = $1`, scope.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch competitor trackings: %w", err)
	}
	defer rows.Close()

	var competitors []models.CompetitorTracking
	for rows.Next() {
		var c models.CompetitorTracking
		var displayName sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.CNPJ, &displayName); err != nil {
			return nil, fmt.Errorf("failed to scan competitor tracking: %w", err)
		}
		c.DisplayName = displayName.String
		c.IsActive = true
		competitors = append(competitors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading competitor rows: %w", err)
	}
	return competitors, nil
}
