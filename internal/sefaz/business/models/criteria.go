package models

// EstablishmentLocator narrows a price search to a set of establishments.
// Exactly one concrete locator type is held per criteria.
type EstablishmentLocator interface {
	establishmentLocator()
}

// ProductLocator identifies what is being priced.
type ProductLocator interface {
	productLocator()
}

type ByCNPJ struct {
	CNPJ string
}

type ByMunicipality struct {
	CodigoIBGE string
}

type ByGeo struct {
	Latitude  float64
	Longitude float64
	RaioKm    int
}

func (ByCNPJ) establishmentLocator()         {}
func (ByMunicipality) establishmentLocator() {}
func (ByGeo) establishmentLocator()          {}

type ByGTIN struct {
	GTIN string
}

type ByDescription struct {
	Descricao string
}

type ByFuelType struct {
	TipoCombustivel int
}

func (ByGTIN) productLocator()        {}
func (ByDescription) productLocator() {}
func (ByFuelType) productLocator()    {}

// SearchCriteria pairs at most one establishment locator with at most one
// product locator. The single-field-per-axis shape enforces the mutual
// exclusion at construction time instead of by field-presence checks.
type SearchCriteria struct {
	Establishment EstablishmentLocator
	Product       ProductLocator
}

func (c SearchCriteria) HasEstablishment() bool {
	return c.Establishment != nil
}

func (c SearchCriteria) HasProduct() bool {
	return c.Product != nil
}

// HasIdentifier reports whether the product locator is code-typed
// (GTIN or fuel type), as opposed to free text.
func (c SearchCriteria) HasIdentifier() bool {
	switch c.Product.(type) {
	case ByGTIN, ByFuelType:
		return true
	}
	return false
}

// Description returns the free-text product term, if that is how the
// product is located.
func (c SearchCriteria) Description() (string, bool) {
	if d, ok := c.Product.(ByDescription); ok {
		return d.Descricao, true
	}
	return "", false
}

// GTIN returns the product identifier code, if present.
func (c SearchCriteria) GTIN() (string, bool) {
	if g, ok := c.Product.(ByGTIN); ok {
		return g.GTIN, true
	}
	return "", false
}

func (c SearchCriteria) IsFuel() bool {
	_, ok := c.Product.(ByFuelType)
	return ok
}

// WithoutEstablishment widens the criteria to every establishment.
func (c SearchCriteria) WithoutEstablishment() SearchCriteria {
	return SearchCriteria{Product: c.Product}
}
