package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// PricewatchSchema creates the engine schema and the migrations ledger.
type PricewatchSchema struct{}

func (m *PricewatchSchema) UpMigration(db *sql.DB) error {
	if _, err := db.Exec(`CREATE SCHEMA IF NOT EXISTS pricewatch;`); err != nil {
		return fmt.Errorf("failed to create pricewatch schema: %w", err)
	}
	if _, err := db.Exec(`CREATE SCHEMA IF NOT EXISTS migrations;`); err != nil {
		return fmt.Errorf("failed to create migrations schema: %w", err)
	}
	query := `
		CREATE TABLE IF NOT EXISTS migrations.migrations (
		name TEXT PRIMARY KEY,
		time TIMESTAMPTZ NOT NULL
		);
		`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations ledger: %w", err)
	}
	return nil
}

func applyOnce(db *sql.DB, name, query string) error {
	var migrationExists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations.migrations WHERE name = $1)", name).Scan(&migrationExists)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if migrationExists {
		log.Printf("Migration '%s' already completed. Skipping.", name)
		return nil
	}

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to apply migration '%s': %w", name, err)
	}
	if _, err := db.Exec("INSERT INTO migrations.migrations (name, time) VALUES ($1, current_timestamp)", name); err != nil {
		return fmt.Errorf("failed to mark migration '%s' as complete: %w", name, err)
	}

	log.Printf("Migration '%s' completed successfully.", name)
	return nil
}

type TrackedItemsTable struct{}

func (m *TrackedItemsTable) UpMigration(db *sql.DB) error {
	return applyOnce(db, "pricewatch.tracked_items", `
		CREATE TABLE IF NOT EXISTS pricewatch.tracked_items (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'product',
		nickname TEXT,
		gtin TEXT,
		descricao TEXT,
		tipo_combustivel INT,
		cnpj TEXT,
		codigo_ibge TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		raio_km INT,
		dias INT NOT NULL DEFAULT 1,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_price NUMERIC(12,2),
		trend TEXT,
		last_updated_at TIMESTAMPTZ
		);
		`)
}

type CompetitorTrackingsTable struct{}

func (m *CompetitorTrackingsTable) UpMigration(db *sql.DB) error {
	return applyOnce(db, "pricewatch.competitor_trackings", `
		CREATE TABLE IF NOT EXISTS pricewatch.competitor_trackings (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		cnpj TEXT NOT NULL,
		display_name TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
		);
		`)
}

type EstablishmentsTable struct{}

func (m *EstablishmentsTable) UpMigration(db *sql.DB) error {
	return applyOnce(db, "pricewatch.establishments", `
		CREATE TABLE IF NOT EXISTS pricewatch.establishments (
		cnpj TEXT PRIMARY KEY,
		razao_social TEXT NOT NULL,
		nome_fantasia TEXT,
		logradouro TEXT,
		numero TEXT,
		bairro TEXT,
		municipio TEXT,
		uf TEXT,
		cep TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		`)
}

type PriceHistoryTable struct{}

func (m *PriceHistoryTable) UpMigration(db *sql.DB) error {
	return applyOnce(db, "pricewatch.price_history", `
		CREATE TABLE IF NOT EXISTS pricewatch.price_history (
		id BIGSERIAL PRIMARY KEY,
		tracked_item_id BIGINT,
		competitor_id BIGINT,
		cnpj TEXT NOT NULL,
		valor_venda NUMERIC(12,2) NOT NULL,
		valor_declarado NUMERIC(12,2),
		data_venda TEXT,
		fetched_at TIMESTAMPTZ NOT NULL,
		raw JSONB
		);
		CREATE INDEX IF NOT EXISTS price_history_item_idx
		ON pricewatch.price_history (tracked_item_id, fetched_at);
		`)
}

type SyncRunsTable struct{}

func (m *SyncRunsTable) UpMigration(db *sql.DB) error {
	return applyOnce(db, "pricewatch.sync_runs", `
		CREATE TABLE IF NOT EXISTS pricewatch.sync_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		progress INT NOT NULL DEFAULT 0,
		total INT NOT NULL DEFAULT 0,
		current_item TEXT,
		error_message TEXT,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ
		);
		`)
}
