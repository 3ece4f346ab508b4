// Package identity derives canonical comparison keys for postal addresses.
// Two address records are considered "the same place" iff their keys match.
// Keys are derived, never stored, and never sent upstream.
package identity

import (
	"strings"

	"storefront-bridge/internal/model"
)

// keySeparator joins key fragments. Pipes do not occur in postal text,
// so fragment boundaries stay unambiguous.
const keySeparator = "|"

// apostropheReplacer folds typographic apostrophe variants to the ASCII
// form so "Rue de l’Église" and "Rue de l'Eglise" compare equal on the
// apostrophe (accents are left alone - the key is a fold, not a phonetic
// match).
var apostropheReplacer = strings.NewReplacer(
	"‘", "'", // left single quotation mark
	"’", "'", // right single quotation mark
	"ʼ", "'", // modifier letter apostrophe
	"`", "'",
)

// Normalize lowercases, trims, collapses internal whitespace runs to single
// spaces, and canonicalizes apostrophes. Total: never fails, empty input
// yields the empty string.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = apostropheReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Key derives the identity key from the four location fields.
// Organization is deliberately excluded: organization-field inconsistencies
// ("ACME" vs "ACME Corp.") would otherwise produce spurious non-duplicates
// for the same physical address.
func Key(street1, postal, city, country string) string {
	return strings.Join([]string{
		Normalize(street1),
		Normalize(postal),
		Normalize(city),
		Normalize(country),
	}, keySeparator)
}

// AddressKey derives the identity key for an address record.
func AddressKey(a *model.Address) string {
	return Key(a.Street1, a.Postal, a.City, a.Country)
}

// LineKey derives the identity key for a distribution line.
func LineKey(l *model.DistributionLine) string {
	return Key(l.Address, l.Postal, l.City, l.Country)
}
