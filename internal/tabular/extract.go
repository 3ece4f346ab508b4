// Package tabular converts uploaded tabular data (CSV or spreadsheet) into
// canonical address records, and renders address books back out to the same
// formats. Column naming is uploader-controlled: headers are matched
// case-insensitively against multilingual alias lists.
package tabular

import (
	"strings"

	"storefront-bridge/internal/config"
	"storefront-bridge/internal/model"
)

// Table is a decoded upload: one header row plus data rows.
// Cells are already coerced to trimmed-ready strings by the decoders.
type Table struct {
	Header []string
	Rows   [][]string
}

// fieldAliases maps each canonical field to its accepted header names, in
// priority order: the first alias present with a non-empty cell wins.
// Alias entries are written in normalized form (lowercase, separators
// stripped); accented variants are listed explicitly since normalization
// does not fold diacritics.
var fieldAliases = map[string][]string{
	"id":           {"id", "addressid", "identifiant"},
	"organization": {"business", "company", "organization", "organisation", "société", "societe", "empresa"},
	"firstname":    {"firstname", "prénom", "prenom", "nombre"},
	"lastname":     {"lastname", "nom", "apellido", "surname"},
	"title":        {"title", "civilité", "civilite"},
	"address1":     {"address", "address1", "adresse", "adresse1", "direccion", "street"},
	"address2":     {"address2", "adresse2", "complement", "complément"},
	"address3":     {"address3", "adresse3"},
	"city":         {"city", "ville", "ciudad", "town"},
	"state":        {"state", "province", "état", "etat"},
	"postal":       {"postal", "postalcode", "codepostal", "cp", "zip", "zipcode"},
	"country":      {"country", "pays", "pais"},
	"phone":        {"phone", "téléphone", "telephone", "telefono", "tel", "mobile"},
	"email":        {"email", "mail", "courriel", "correo"},
}

// normalizeHeader folds a header cell for alias matching: lowercased with
// spaces, dots, dashes and underscores stripped ("Postal Code" == "postal_code").
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", ".", "", "-", "", "_", "").Replace(h)
}

// Extractor turns raw rows into address records, applying the configured
// defaulting policy for absent fields.
type Extractor struct {
	defaults config.Defaults
}

// NewExtractor creates an Extractor with the given defaulting policy.
func NewExtractor(defaults config.Defaults) *Extractor {
	return &Extractor{defaults: defaults}
}

// columnIndex maps normalized header names to their column position.
// First occurrence wins for duplicated headers.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// lookup probes the alias list for field and returns the first non-empty
// cell value, trimmed.
func lookup(field string, idx map[string]int, row []string) string {
	for _, alias := range fieldAliases[field] {
		col, ok := idx[alias]
		if !ok || col >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[col]); v != "" {
			return v
		}
	}
	return ""
}

// Extract converts one raw row into an address record.
// Returns nil (row rejected, not an error) when street line 1, city, postal
// code or country remain empty after extraction and defaulting. Empty and
// short rows are skipped the same way.
func (e *Extractor) Extract(header, row []string) *model.Address {
	if len(row) == 0 {
		return nil
	}
	idx := columnIndex(header)

	addr := &model.Address{
		ID:           lookup("id", idx, row),
		Organization: lookup("organization", idx, row),
		FirstName:    lookup("firstname", idx, row),
		LastName:     lookup("lastname", idx, row),
		Title:        lookup("title", idx, row),
		Street1:      lookup("address1", idx, row),
		Street2:      lookup("address2", idx, row),
		Street3:      lookup("address3", idx, row),
		City:         lookup("city", idx, row),
		State:        lookup("state", idx, row),
		Postal:       lookup("postal", idx, row),
		Country:      lookup("country", idx, row),
		Phone:        lookup("phone", idx, row),
		Email:        lookup("email", idx, row),
	}

	e.ApplyDefaults(addr)

	if !addr.Valid() {
		return nil
	}
	return addr
}

// ExtractAll runs Extract over every data row, dropping rejected rows.
func (e *Extractor) ExtractAll(t Table) []model.Address {
	out := make([]model.Address, 0, len(t.Rows))
	for _, row := range t.Rows {
		if addr := e.Extract(t.Header, row); addr != nil {
			out = append(out, *addr)
		}
	}
	return out
}

// ApplyDefaults fills absent fields with the configured sentinels and
// canonicalizes the country code. Also used for records arriving as JSON
// (no tabular extraction) so both import paths share one defaulting policy.
func (e *Extractor) ApplyDefaults(addr *model.Address) {
	if strings.TrimSpace(addr.State) == "" {
		addr.State = e.defaults.StateSentinel
	}
	if strings.TrimSpace(addr.Country) == "" {
		addr.Country = e.defaults.FallbackCountry
	}
	addr.Country = strings.ToUpper(strings.TrimSpace(addr.Country))
	if strings.TrimSpace(addr.Organization) == "" {
		addr.Organization = e.defaults.OrganizationSentinel
	}
}
