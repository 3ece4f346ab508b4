// Package model defines data structures for the address book and
// distribution domain, plus the error types shared across packages.
package model

import (
	"fmt"
	"strings"
)

// === Address Book Types ===

// Address represents one physical mailing address tied to a customer account.
// ID is the upstream-assigned identifier; it is empty for records that have
// not been saved yet. The upstream create endpoint does not echo the assigned
// identifier back, so new records stay ID-less until re-resolved against a
// fresh address book snapshot.
type Address struct {
	ID           string `json:"id,omitempty"`
	Organization string `json:"organization,omitempty"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	Title        string `json:"title,omitempty"`
	Street1      string `json:"address1"`
	Street2      string `json:"address2,omitempty"`
	Street3      string `json:"address3,omitempty"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	Postal       string `json:"postalCode"`
	Country      string `json:"country"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
}

// Valid reports whether the record carries the required fields:
// street line 1, city, postal code and country, all non-empty after trimming.
func (a *Address) Valid() bool {
	return strings.TrimSpace(a.Street1) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.Postal) != "" &&
		strings.TrimSpace(a.Country) != ""
}

// Summary returns a short human-readable form used in row diagnostics.
func (a *Address) Summary() string {
	return fmt.Sprintf("%s, %s %s (%s)",
		strings.TrimSpace(a.Street1),
		strings.TrimSpace(a.Postal),
		strings.TrimSpace(a.City),
		strings.ToUpper(strings.TrimSpace(a.Country)))
}

// AddressBook is a read-only snapshot of a customer's saved addresses:
// the designated default entry plus zero or more additional entries.
// Snapshots are fetched fresh per operation and never cached across requests.
type AddressBook struct {
	Default    *Address  `json:"default,omitempty"`
	Additional []Address `json:"addresses"`
}

// All returns every address in the book, default first.
func (b *AddressBook) All() []Address {
	if b == nil {
		return nil
	}
	out := make([]Address, 0, len(b.Additional)+1)
	if b.Default != nil {
		out = append(out, *b.Default)
	}
	out = append(out, b.Additional...)
	return out
}

// === Import Types ===

// RowDiagnostic describes the outcome of a single imported row.
// Row is 1-based to match what the uploader sees in their file.
type RowDiagnostic struct {
	Row            int    `json:"row"`
	Address        string `json:"address"`
	Reason         string `json:"reason"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
}

// ImportSummary aggregates the result of a batch import.
// OK is true iff no record produced an error; skips and partial creates
// do not count as failure.
type ImportSummary struct {
	OK            bool            `json:"ok"`
	TotalParsed   int             `json:"totalParsed"`
	TotalImported int             `json:"totalImported"`
	CreatedCount  int             `json:"createdCount"`
	UpdatedCount  int             `json:"updatedCount"`
	SkippedCount  int             `json:"skippedCount"`
	ErrorCount    int             `json:"errorCount"`
	Skipped       []RowDiagnostic `json:"skipped"`
	Errors        []RowDiagnostic `json:"errors"`
}

// === Distribution Types ===

// DistributionLine is one shipment in a distribution run: a free-text
// address plus a quantity. Lines sharing the same identity key are merged
// (quantities summed) before resolution; AddressID is filled in once the
// line has been matched or created in the upstream address book.
type DistributionLine struct {
	Address   string `json:"address"`
	Postal    string `json:"postalCode"`
	City      string `json:"city"`
	Country   string `json:"country,omitempty"`
	Quantity  int    `json:"quantity"`
	AddressID string `json:"addressId,omitempty"`
}

// === Cart Types ===

// CartLine pairs a resolved address identifier with a quantity for one
// cart line item.
type CartLine struct {
	AddressID string `json:"addressId"`
	Quantity  int    `json:"quantity"`
}

// CartLineStatus values for per-line cart insertion results.
const (
	CartLineOK      = "ok"
	CartLineWarning = "warning"
	CartLineFailed  = "failed"
)

// CartLineResult reports the outcome of inserting one cart line.
type CartLineResult struct {
	AddressID string `json:"addressId"`
	Quantity  int    `json:"quantity"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// CartItemRequest describes a multi-line cart insertion: one product shipped
// to many addresses. PricingOptions carries platform pricing parameters
// (option ID → quantity) passed through to the upstream line item call.
type CartItemRequest struct {
	ProductSlug    string         `json:"productSlug"`
	ShippingMethod string         `json:"shippingMethod,omitempty"`
	PricingOptions map[string]int `json:"pricingOptions,omitempty"`
	Lines          []CartLine     `json:"lines"`
}
