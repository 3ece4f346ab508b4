package tabular

import (
	"testing"

	"storefront-bridge/internal/config"
	"storefront-bridge/internal/model"
)

func testDefaults() config.Defaults {
	return config.Defaults{
		FallbackCountry:      "FR",
		OrganizationSentinel: "Distribution",
		StateSentinel:        "NA",
	}
}

func TestExtractHeaderAliases(t *testing.T) {
	e := NewExtractor(testDefaults())

	tests := []struct {
		name   string
		header []string
		row    []string
		check  func(t *testing.T, a *model.Address)
	}{
		{
			name:   "english headers",
			header: []string{"Address1", "City", "PostalCode", "Country"},
			row:    []string{"10 Rue Neuve", "Lyon", "69000", "FR"},
			check: func(t *testing.T, a *model.Address) {
				if a.Street1 != "10 Rue Neuve" || a.City != "Lyon" {
					t.Errorf("got %+v", a)
				}
			},
		},
		{
			name:   "french headers mixed case",
			header: []string{"ADRESSE", "Ville", "cp", "Pays", "Société"},
			row:    []string{"10 Rue Neuve", "Lyon", "69000", "fr", "ACME"},
			check: func(t *testing.T, a *model.Address) {
				if a.Street1 != "10 Rue Neuve" {
					t.Errorf("Street1 = %q", a.Street1)
				}
				if a.Country != "FR" {
					t.Errorf("Country = %q, want FR (uppercased)", a.Country)
				}
				if a.Organization != "ACME" {
					t.Errorf("Organization = %q", a.Organization)
				}
			},
		},
		{
			name:   "spanish headers",
			header: []string{"Direccion", "Ciudad", "Zip", "Pais", "Nombre", "Apellido"},
			row:    []string{"Calle Mayor 1", "Madrid", "28001", "ES", "Ana", "García"},
			check: func(t *testing.T, a *model.Address) {
				if a.City != "Madrid" || a.FirstName != "Ana" || a.LastName != "García" {
					t.Errorf("got %+v", a)
				}
			},
		},
		{
			name:   "separator-insensitive headers",
			header: []string{"Postal Code", "address_1", "CITY", "country"},
			row:    []string{"75001", "1 Rue X", "Paris", "FR"},
			check: func(t *testing.T, a *model.Address) {
				if a.Postal != "75001" || a.Street1 != "1 Rue X" {
					t.Errorf("got %+v", a)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := e.Extract(tt.header, tt.row)
			if addr == nil {
				t.Fatal("Extract() = nil, want record")
			}
			tt.check(t, addr)
		})
	}
}

func TestExtractDefaults(t *testing.T) {
	e := NewExtractor(testDefaults())

	header := []string{"Address1", "City", "PostalCode"}
	addr := e.Extract(header, []string{"10 Rue Neuve", "Lyon", "69000"})
	if addr == nil {
		t.Fatal("Extract() = nil")
	}

	if addr.Country != "FR" {
		t.Errorf("Country = %q, want fallback FR", addr.Country)
	}
	if addr.State != "NA" {
		t.Errorf("State = %q, want NA", addr.State)
	}
	if addr.Organization != "Distribution" {
		t.Errorf("Organization = %q, want Distribution", addr.Organization)
	}
}

func TestExtractRejectsIncompleteRows(t *testing.T) {
	e := NewExtractor(testDefaults())
	header := []string{"Address1", "City", "PostalCode", "Country"}

	tests := []struct {
		name string
		row  []string
	}{
		{"empty row", []string{}},
		{"missing postal", []string{"10 Rue Neuve", "Lyon", "", "FR"}},
		{"missing street", []string{"", "Lyon", "69000", "FR"}},
		{"whitespace street", []string{"   ", "Lyon", "69000", "FR"}},
		{"short row", []string{"10 Rue Neuve"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if addr := e.Extract(header, tt.row); addr != nil {
				t.Errorf("Extract() = %+v, want nil", addr)
			}
		})
	}
}

func TestExtractCountryDefaultStillRequired(t *testing.T) {
	// A missing country falls back to the configured default, so the row
	// passes; a missing city has no default and the row is rejected.
	e := NewExtractor(testDefaults())

	header := []string{"Address1", "City", "PostalCode", "Country"}
	if addr := e.Extract(header, []string{"10 Rue Neuve", "Lyon", "69000", ""}); addr == nil {
		t.Error("row without country should pass via fallback")
	}
	if addr := e.Extract(header, []string{"10 Rue Neuve", "", "69000", "FR"}); addr != nil {
		t.Error("row without city should be rejected")
	}
}

func TestExtractFirstNonEmptyAliasWins(t *testing.T) {
	e := NewExtractor(testDefaults())

	// "address" outranks "adresse" but its cell is empty here.
	header := []string{"Address", "Adresse", "City", "PostalCode", "Country"}
	addr := e.Extract(header, []string{"", "10 Rue Neuve", "Lyon", "69000", "FR"})
	if addr == nil {
		t.Fatal("Extract() = nil")
	}
	if addr.Street1 != "10 Rue Neuve" {
		t.Errorf("Street1 = %q, want value from lower-priority alias", addr.Street1)
	}
}

func TestExtractAllCounts(t *testing.T) {
	e := NewExtractor(testDefaults())

	table := Table{
		Header: []string{"Address1", "City", "Postal", "Country"},
		Rows: [][]string{
			{"10 Rue Neuve", "Lyon", "69000", "FR"},
			{"", "", "", ""},
			{"1 Rue X", "Paris", "75001", "FR"},
		},
	}

	records := e.ExtractAll(table)
	if len(records) != 2 {
		t.Errorf("ExtractAll() len = %d, want 2", len(records))
	}
}
