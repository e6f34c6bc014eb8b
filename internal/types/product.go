package types

// Column names in output order. Every tabular writer uses this order.
const (
	ColURL                = "url"
	ColName               = "name"
	ColProductNumber      = "product_number"
	ColCASLabeled         = "cas_labeled"
	ColCASUnlabeled       = "cas_unlabeled"
	ColSynonyms           = "synonyms"
	ColFormula            = "formula"
	ColMolecularWeight    = "molecular_weight"
	ColIsotopicEnrichment = "isotopic_enrichment"
	ColChemicalPurity     = "chemical_purity"
	ColDescription        = "description"
	ColImageURL           = "image_url"
	ColPageTitle          = "page_title"
)

// ProductColumns is the fixed column list of a product record.
var ProductColumns = []string{
	ColURL,
	ColName,
	ColProductNumber,
	ColCASLabeled,
	ColCASUnlabeled,
	ColSynonyms,
	ColFormula,
	ColMolecularWeight,
	ColIsotopicEnrichment,
	ColChemicalPurity,
	ColDescription,
	ColImageURL,
	ColPageTitle,
}

// Product is a single scraped catalog record. Empty string means not found.
type Product struct {
	URL                string `json:"url"                 bson:"url"`
	Name               string `json:"name"                bson:"name"`
	ProductNumber      string `json:"product_number"      bson:"product_number"`
	CASLabeled         string `json:"cas_labeled"         bson:"cas_labeled"`
	CASUnlabeled       string `json:"cas_unlabeled"       bson:"cas_unlabeled"`
	Synonyms           string `json:"synonyms"            bson:"synonyms"`
	Formula            string `json:"formula"             bson:"formula"`
	MolecularWeight    string `json:"molecular_weight"    bson:"molecular_weight"`
	IsotopicEnrichment string `json:"isotopic_enrichment" bson:"isotopic_enrichment"`
	ChemicalPurity     string `json:"chemical_purity"     bson:"chemical_purity"`
	Description        string `json:"description"         bson:"description"`
	ImageURL           string `json:"image_url"           bson:"image_url"`
	PageTitle          string `json:"page_title"          bson:"page_title"`
}

// NewProduct creates an empty record for a source URL.
func NewProduct(sourceURL string) *Product {
	return &Product{URL: sourceURL}
}

// field returns a pointer to the named column, or nil for unknown names.
func (p *Product) field(name string) *string {
	switch name {
	case ColURL:
		return &p.URL
	case ColName:
		return &p.Name
	case ColProductNumber:
		return &p.ProductNumber
	case ColCASLabeled:
		return &p.CASLabeled
	case ColCASUnlabeled:
		return &p.CASUnlabeled
	case ColSynonyms:
		return &p.Synonyms
	case ColFormula:
		return &p.Formula
	case ColMolecularWeight:
		return &p.MolecularWeight
	case ColIsotopicEnrichment:
		return &p.IsotopicEnrichment
	case ColChemicalPurity:
		return &p.ChemicalPurity
	case ColDescription:
		return &p.Description
	case ColImageURL:
		return &p.ImageURL
	case ColPageTitle:
		return &p.PageTitle
	default:
		return nil
	}
}

// Get retrieves a column value by name.
func (p *Product) Get(name string) string {
	if f := p.field(name); f != nil {
		return *f
	}
	return ""
}

// Set sets a column value by name. Unknown names are ignored.
func (p *Product) Set(name, value string) {
	if f := p.field(name); f != nil {
		*f = value
	}
}

// SetIfEmpty sets a column only when it has no value yet.
// It reports whether the value was written.
func (p *Product) SetIfEmpty(name, value string) bool {
	f := p.field(name)
	if f == nil || *f != "" || value == "" {
		return false
	}
	*f = value
	return true
}

// Values returns the column values in ProductColumns order.
func (p *Product) Values() []string {
	vals := make([]string, len(ProductColumns))
	for i, col := range ProductColumns {
		vals[i] = p.Get(col)
	}
	return vals
}

// ToMap returns the record keyed by column name.
func (p *Product) ToMap() map[string]string {
	m := make(map[string]string, len(ProductColumns))
	for _, col := range ProductColumns {
		m[col] = p.Get(col)
	}
	return m
}

// HasCoreData reports whether any of name, labeled CAS or formula was found.
func (p *Product) HasCoreData() bool {
	return p.Name != "" || p.CASLabeled != "" || p.Formula != ""
}

// HasDetails reports whether labeled CAS or formula was found.
func (p *Product) HasDetails() bool {
	return p.CASLabeled != "" || p.Formula != ""
}
