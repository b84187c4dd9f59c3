package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"gopricewatch_api/config/values"
)

type SefazConfig struct {
	ApiURL      string             `yaml:"api_url"`
	AppToken    string             `yaml:"app_token"`
	SefazValues values.SefazValues `yaml:"default_values"`
	SyncValues  values.SyncValues  `yaml:"sync"`
}

type AppConfig struct {
	Sefaz    SefazConfig    `yaml:"sefaz"`
	Postgres PostgresConfig `yaml:"postgres"`
}

func LoadConfig(filename string) (*AppConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	config := &AppConfig{}
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}
	config.Sefaz.SefazValues = config.Sefaz.SefazValues.WithDefaults()
	config.Sefaz.SyncValues = config.Sefaz.SyncValues.WithDefaults()
	return config, nil
}
