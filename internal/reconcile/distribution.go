package reconcile

import (
	"context"
	"log/slog"
	"strings"

	"storefront-bridge/internal/identity"
	"storefront-bridge/internal/model"
)

// MergeLines collapses distribution lines that resolve to the same identity
// key, summing quantities. Lines with a non-positive quantity are dropped.
// The first occurrence keeps its spelling; input order is preserved.
func MergeLines(lines []model.DistributionLine) []model.DistributionLine {
	index := make(map[string]int, len(lines))
	merged := make([]model.DistributionLine, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		key := identity.LineKey(&line)
		if i, seen := index[key]; seen {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[key] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

// ResolveDistribution turns a distribution list into cart-ready lines: each
// merged line gets the identifier of a matching address-book entry, creating
// the entry first when the customer has never shipped there.
//
// Unlike Import, resolution is all-or-nothing. A cart pointing at a half
// resolved list would silently drop shipments, so the first failure aborts
// and nothing is returned.
func (r *Reconciler) ResolveDistribution(ctx context.Context, customerID string, lines []model.DistributionLine) ([]model.DistributionLine, error) {
	merged := MergeLines(lines)
	if len(merged) == 0 {
		return nil, model.NewValidationError("lines", "no line with a positive quantity")
	}

	book, err := r.upstream.GetAddressBook(ctx, customerID)
	if err != nil {
		return nil, err
	}
	known := bookKeys(book)
	template := book.Default

	resolved := make([]model.DistributionLine, 0, len(merged))
	for _, line := range merged {
		// Key the lookup on the canonical record, not the raw line: the
		// book always carries a country, so a line relying on the
		// fallback would otherwise miss its existing entry and submit a
		// duplicate create.
		addr := r.lineToAddress(&line)
		key := identity.AddressKey(&addr)
		if id, ok := known[key]; ok {
			line.AddressID = id
			resolved = append(resolved, line)
			continue
		}

		addr = mergeTemplate(addr, template)
		id, err := r.createAndResolve(ctx, customerID, &addr)
		if err != nil {
			r.logger.Error("distribution line unresolvable",
				slog.String("customer_id", customerID),
				slog.String("address", addr.Summary()),
				slog.Any("error", err),
			)
			return nil, err
		}
		known[key] = id
		line.AddressID = id
		resolved = append(resolved, line)
	}
	return resolved, nil
}

// lineToAddress lifts a free-text distribution line into an address record,
// applying the configured country fallback and sentinels. The template merge
// fills the rest from the customer's preferred address.
func (r *Reconciler) lineToAddress(line *model.DistributionLine) model.Address {
	country := strings.TrimSpace(line.Country)
	if country == "" {
		country = r.defaults.FallbackCountry
	}
	return model.Address{
		Organization: r.defaults.OrganizationSentinel,
		Street1:      strings.TrimSpace(line.Address),
		City:         strings.TrimSpace(line.City),
		State:        r.defaults.StateSentinel,
		Postal:       strings.TrimSpace(line.Postal),
		Country:      strings.ToUpper(country),
	}
}
