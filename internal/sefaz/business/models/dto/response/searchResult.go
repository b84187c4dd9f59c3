package response

// SearchResult is the success envelope every pesquisa endpoint returns.
type SearchResult struct {
	TotalRegistros int     `json:"totalRegistros"`
	TotalPaginas   int     `json:"totalPaginas"`
	Pagina         int     `json:"pagina"`
	Conteudo       []Offer `json:"conteudo"`
}

func (r *SearchResult) IsEmpty() bool {
	return r == nil || len(r.Conteudo) == 0
}

// Offer is one (product, establishment, sale) tuple.
type Offer struct {
	Produto         Product       `json:"produto"`
	Estabelecimento Establishment `json:"estabelecimento"`
}

type Product struct {
	Descricao     string `json:"descricao"`
	GTIN          string `json:"gtin"`
	UnidadeMedida string `json:"unidadeMedida"`
	Venda         Sale   `json:"venda"`
}

type Sale struct {
	ValorVenda     float64 `json:"valorVenda"`
	ValorDeclarado float64 `json:"valorDeclarado"`
	DataVenda      string  `json:"dataVenda"`
}

type Establishment struct {
	CNPJ         string  `json:"cnpj"`
	RazaoSocial  string  `json:"razaoSocial"`
	NomeFantasia string  `json:"nomeFantasia"`
	Endereco     Address `json:"endereco"`
}

type Address struct {
	NomeLogradouro string `json:"nomeLogradouro"`
	NumeroImovel   string `json:"numeroImovel"`
	Bairro         string `json:"bairro"`
	Municipio      string `json:"municipio"`
	UF             string `json:"uf"`
	CEP            string `json:"cep"`
}

// ErrorEnvelope is the upstream error shape. It can arrive with any HTTP
// status, including 200, and is recognized by its timestamp+message pair.
type ErrorEnvelope struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
}

func (e *ErrorEnvelope) IsError() bool {
	return e != nil && e.Timestamp != "" && e.Message != ""
}
