package reconcile

import (
	"context"
	"log/slog"

	"storefront-bridge/internal/identity"
	"storefront-bridge/internal/model"
)

// Import reconciles a parsed batch against the customer's address book and
// aggregates the per-record outcomes into a summary.
//
// Before any upstream call the batch is deduplicated in memory: two records
// carrying the same explicit identifier, or the same identity key, collapse
// into the first occurrence. Collapsed duplicates are not reported as skips -
// skip diagnostics are reserved for records the book already holds.
//
// The returned error is request-level (the book could not be fetched); all
// per-record failures land in the summary instead.
func (r *Reconciler) Import(ctx context.Context, customerID string, records []model.Address) (*model.ImportSummary, error) {
	book, err := r.upstream.GetAddressBook(ctx, customerID)
	if err != nil {
		return nil, err
	}

	unique, rows := dedupeBatch(records)
	outcomes := r.Reconcile(ctx, customerID, unique, book)

	summary := &model.ImportSummary{
		TotalParsed:   len(records),
		TotalImported: len(unique),
		Skipped:       []model.RowDiagnostic{},
		Errors:        []model.RowDiagnostic{},
	}
	for i, out := range outcomes {
		// Diagnostics carry the record's position in the submitted batch,
		// not its position after dedup: the uploader counts their own rows.
		switch out.Action {
		case ActionCreated:
			summary.CreatedCount++
		case ActionUpdated:
			summary.UpdatedCount++
		case ActionSkipped:
			summary.SkippedCount++
			summary.Skipped = append(summary.Skipped, model.RowDiagnostic{
				Row:     rows[i],
				Address: out.Record.Summary(),
				Reason:  "duplicate of existing address",
			})
		case ActionFailed:
			summary.ErrorCount++
			summary.Errors = append(summary.Errors, model.RowDiagnostic{
				Row:            rows[i],
				Address:        out.Record.Summary(),
				Reason:         out.Err.Error(),
				UpstreamStatus: upstreamStatus(out.Err),
			})
		}
	}
	summary.OK = summary.ErrorCount == 0

	r.logger.Info("import finished",
		slog.String("customer_id", customerID),
		slog.Int("parsed", summary.TotalParsed),
		slog.Int("created", summary.CreatedCount),
		slog.Int("updated", summary.UpdatedCount),
		slog.Int("skipped", summary.SkippedCount),
		slog.Int("errors", summary.ErrorCount),
	)
	return summary, nil
}

// dedupeBatch collapses duplicate records within one batch, preserving input
// order. Records with an explicit identifier are keyed by it; the rest by
// their identity key. First occurrence wins. The second return value maps
// each kept record to its 1-based position in the original batch.
func dedupeBatch(records []model.Address) ([]model.Address, []int) {
	seen := make(map[string]bool, len(records))
	unique := make([]model.Address, 0, len(records))
	rows := make([]int, 0, len(records))
	for i, rec := range records {
		key := rec.ID
		if key == "" {
			key = identity.AddressKey(&rec)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, rec)
		rows = append(rows, i+1)
	}
	return unique, rows
}
