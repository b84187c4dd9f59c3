package main

import (
	"flag"
	"log"
	"os"

	"gopricewatch_api/config"
	"gopricewatch_api/internal/pricesync/app"
	"gopricewatch_api/pkg/dbconnect/postgres"
)

const defaultApiURL = "http://api.sefaz.al.gov.br/sfz-economiza-alagoas-api/api/public/"

func main() {
	configPath := flag.String("config", "config.yaml", "path to the app config")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Printf("Config file not loaded (%v), falling back to environment", err)
		cfg = &config.AppConfig{Postgres: *config.GetPostgresConfig()}
		cfg.Sefaz.SefazValues = cfg.Sefaz.SefazValues.WithDefaults()
		cfg.Sefaz.SyncValues = cfg.Sefaz.SyncValues.WithDefaults()
	}
	if cfg.Sefaz.ApiURL == "" {
		cfg.Sefaz.ApiURL = defaultApiURL
	}
	if cfg.Sefaz.AppToken == "" {
		cfg.Sefaz.AppToken = os.Getenv("SEFAZ_APP_TOKEN")
	}

	connector := postgres.NewPgConnector(&cfg.Postgres)
	server := app.NewPriceSyncServer(connector, cfg.Sefaz, os.Stdout)
	server.Run()
}
