package storage

import (
	"database/sql"
	"fmt"

	"gopricewatch_api/internal/pricesync/models"
)

type EstablishmentsRepository struct {
	db *sql.DB
}

func NewEstablishmentsRepository(db *sql.DB) *EstablishmentsRepository {
	return &EstablishmentsRepository{db: db}
}

// Upsert inserts or refreshes an establishment keyed by CNPJ. An empty
// trade name never overwrites a previously known one.
func (r *EstablishmentsRepository) Upsert(record models.EstablishmentRecord) error {
	query := `
		INSERT INTO pricewatch.establishments
			(cnpj, razao_social, nome_fantasia, logradouro, numero, bairro, municipio, uf, cep, updated_at)
		VALUES
			($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (cnpj) DO UPDATE
		SET
			razao_social = EXCLUDED.razao_social,
			nome_fantasia = COALESCE(EXCLUDED.nome_fantasia, establishments.nome_fantasia),
			logradouro = EXCLUDED.logradouro,
			numero = EXCLUDED.numero,
			bairro = EXCLUDED.bairro,
			municipio = EXCLUDED.municipio,
			uf = EXCLUDED.uf,
			cep = EXCLUDED.cep,
			updated_at = now();
		`
	_, err := r.db.Exec(query,
		record.CNPJ, record.RazaoSocial, record.NomeFantasia,
		record.Logradouro, record.Numero, record.Bairro,
		record.Municipio, record.UF, record.CEP,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert establishment %s: %w", record.CNPJ, err)
	}
	return nil
}
