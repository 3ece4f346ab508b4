// Package reconcile decides, per address record, whether to skip, update or
// create against a customer's upstream address book, and drives the batch
// import and distribution-list flows on top of that decision.
//
// The upstream create endpoint does not return the assigned identifier, so
// creation is a two-step protocol: submit the record, then re-fetch the book
// and match on the identity key. The in-memory key set doubles as the
// idempotency guard - a key that is already known is never re-submitted.
package reconcile

import (
	"context"
	"errors"
	"log/slog"

	"storefront-bridge/internal/adapter"
	"storefront-bridge/internal/config"
	"storefront-bridge/internal/identity"
	"storefront-bridge/internal/model"
)

// Action classifies the outcome of reconciling one record.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped" // duplicate of an existing book entry
	ActionFailed  Action = "failed"
)

// Outcome reports what happened to one record, in batch order.
type Outcome struct {
	Action    Action
	Record    model.Address
	AddressID string // resolved identifier for created/updated/skipped
	Err       error  // set when Action is ActionFailed
}

// Reconciler reconciles address batches against upstream address books.
type Reconciler struct {
	upstream adapter.Adapter
	defaults config.Defaults
	logger   *slog.Logger
}

// New creates a Reconciler.
func New(upstream adapter.Adapter, defaults config.Defaults, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		upstream: upstream,
		defaults: defaults,
		logger:   logger,
	}
}

// Reconcile processes the batch in input order against a snapshot of the
// customer's address book. Records are handled independently: an upstream
// failure on one record is captured in its Outcome and does not stop the
// rest of the batch.
//
// The known-key set starts from the snapshot (default address included) and
// is extended as records are created, so a second record with the key of an
// earlier in-batch create is detected as a duplicate even though the book
// was only fetched once.
func (r *Reconciler) Reconcile(ctx context.Context, customerID string, batch []model.Address, book *model.AddressBook) []Outcome {
	known := bookKeys(book)
	template := book.Default

	outcomes := make([]Outcome, 0, len(batch))
	for _, rec := range batch {
		outcomes = append(outcomes, r.reconcileOne(ctx, customerID, rec, template, known))
	}
	return outcomes
}

// reconcileOne applies the skip/update/create decision to a single record.
func (r *Reconciler) reconcileOne(ctx context.Context, customerID string, rec model.Address, template *model.Address, known map[string]string) Outcome {
	// Explicit identifier: the caller wants an update, duplicates be damned.
	if rec.ID != "" {
		merged := mergeTemplate(rec, template)
		if err := r.upstream.UpdateAddress(ctx, customerID, &merged); err != nil {
			return Outcome{Action: ActionFailed, Record: rec, Err: err}
		}
		known[identity.AddressKey(&merged)] = merged.ID
		return Outcome{Action: ActionUpdated, Record: merged, AddressID: merged.ID}
	}

	key := identity.AddressKey(&rec)
	if id, dup := known[key]; dup {
		return Outcome{Action: ActionSkipped, Record: rec, AddressID: id}
	}

	merged := mergeTemplate(rec, template)
	id, err := r.createAndResolve(ctx, customerID, &merged)
	if err != nil {
		return Outcome{Action: ActionFailed, Record: merged, Err: err}
	}

	known[key] = id
	merged.ID = id
	return Outcome{Action: ActionCreated, Record: merged, AddressID: id}
}

// createAndResolve runs the two-step create protocol: submit the record,
// then re-fetch the address book and scan for the entry whose identity key
// matches the submitted payload. The first match wins.
func (r *Reconciler) createAndResolve(ctx context.Context, customerID string, addr *model.Address) (string, error) {
	if err := r.upstream.CreateAddress(ctx, customerID, addr); err != nil {
		return "", err
	}

	// Re-fetch to observe the record the platform just stored.
	book, err := r.upstream.GetAddressBook(ctx, customerID)
	if err != nil {
		return "", err
	}

	want := identity.AddressKey(addr)
	for _, entry := range book.All() {
		if entry.ID != "" && identity.AddressKey(&entry) == want {
			return entry.ID, nil
		}
	}

	r.logger.Warn("address created but not found in refreshed book",
		slog.String("customer_id", customerID),
		slog.String("address", addr.Summary()),
	)
	return "", model.NewUnresolvedAddressError(addr.Summary())
}

// mergeTemplate fills the record's empty optional fields from the
// customer's preferred address. Required fields always come from the record
// itself; fields empty in both stay empty and are omitted from upstream
// payloads so existing values are preserved.
func mergeTemplate(rec model.Address, template *model.Address) model.Address {
	if template == nil {
		return rec
	}
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&rec.Organization, template.Organization)
	fill(&rec.FirstName, template.FirstName)
	fill(&rec.LastName, template.LastName)
	fill(&rec.Title, template.Title)
	fill(&rec.State, template.State)
	fill(&rec.Country, template.Country)
	fill(&rec.Phone, template.Phone)
	fill(&rec.Email, template.Email)
	return rec
}

// bookKeys indexes the snapshot by identity key, default address included.
// First occurrence wins so the default takes precedence over an additional
// entry at the same place.
func bookKeys(book *model.AddressBook) map[string]string {
	known := make(map[string]string)
	for _, entry := range book.All() {
		if entry.ID == "" {
			continue
		}
		key := identity.AddressKey(&entry)
		if _, seen := known[key]; !seen {
			known[key] = entry.ID
		}
	}
	return known
}

// upstreamStatus extracts the upstream HTTP status from an error chain,
// zero when the failure never reached the platform.
func upstreamStatus(err error) int {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Upstream != nil {
		return apiErr.Upstream.Status
	}
	return 0
}
