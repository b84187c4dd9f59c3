package services

// Public API endpoints, relative to the configured base URL.
const (
	EndpointProductSearch       = "produto/pesquisa"
	EndpointFuelSearch          = "combustivel/pesquisa"
	EndpointProductsByGTIN      = "produtos/gtin"
	EndpointProductsByText      = "produtos/descricao"
	EndpointProductsByEstablish = "produtos/estabelecimento"
)
