package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"storefront-bridge/internal/identity"
	"storefront-bridge/internal/model"
	"storefront-bridge/internal/tabular"
)

// handleListAddresses returns the customer's address book with duplicate
// entries collapsed. The platform happily stores the same place several
// times; the storefront should not show it several times.
func (h *Handler) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	email, err := customerEmail(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	book, err := h.fetchBook(r.Context(), email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, dedupeBook(book))
}

// importRequest is the JSON import payload: address records, optionally
// carrying identifiers to force updates.
type importRequest struct {
	Addresses []model.Address `json:"addresses"`
}

// handleImportAddresses imports a JSON batch into the address book.
func (h *Handler) handleImportAddresses(w http.ResponseWriter, r *http.Request) {
	email, err := customerEmail(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if len(req.Addresses) == 0 {
		h.writeError(w, model.NewValidationError("addresses", "at least one record required"))
		return
	}

	// JSON records go through the same defaulting as file rows so both
	// paths produce identical upstream payloads.
	records := make([]model.Address, 0, len(req.Addresses))
	for _, addr := range req.Addresses {
		h.extractor.ApplyDefaults(&addr)
		if !addr.Valid() {
			h.writeError(w, model.NewValidationError("addresses",
				fmt.Sprintf("record %q is missing required fields", addr.Summary())))
			return
		}
		records = append(records, addr)
	}

	h.runImport(w, r, email, records)
}

// handleImportFile imports a CSV or XLSX upload into the address book.
// The file goes in a multipart field named "file".
func (h *Handler) handleImportFile(w http.ResponseWriter, r *http.Request) {
	email, err := customerEmail(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, model.NewValidationError("file", "multipart field \"file\" with a CSV or XLSX upload is required"))
		return
	}
	defer file.Close()

	table, err := tabular.Decode(header.Filename, file)
	if err != nil {
		h.writeError(w, model.NewValidationError("file", err.Error()))
		return
	}

	records := h.extractor.ExtractAll(table)
	if len(records) == 0 {
		h.writeError(w, model.NewValidationError("file", "no usable address rows found"))
		return
	}

	h.logger.InfoContext(r.Context(), "file import parsed",
		slog.String("filename", header.Filename),
		slog.Int("rows", len(table.Rows)),
		slog.Int("records", len(records)),
	)

	h.runImport(w, r, email, records)
}

// runImport resolves the customer and hands the batch to the reconciler.
// The summary is returned with 200 even when individual rows failed; only
// request-level failures produce an error envelope.
func (h *Handler) runImport(w http.ResponseWriter, r *http.Request, email string, records []model.Address) {
	customerID, err := h.upstream.ResolveCustomer(r.Context(), email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	summary, err := h.reconciler.Import(r.Context(), customerID, records)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// handleExportAddresses streams the deduplicated address book as a CSV or
// XLSX download. The sheet doubles as an import template: one row per
// address, a default flag, and a blank quantity column to fill in.
func (h *Handler) handleExportAddresses(w http.ResponseWriter, r *http.Request) {
	email, err := customerEmail(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		h.writeError(w, model.NewValidationError("format", "must be csv or xlsx"))
		return
	}

	book, err := h.fetchBook(r.Context(), email)
	if err != nil {
		h.writeError(w, err)
		return
	}
	book = dedupeBook(book)

	w.Header().Set("Content-Disposition", `attachment; filename="addresses.`+format+`"`)
	if format == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		err = tabular.ExportXLSX(w, book)
	} else {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		err = tabular.ExportCSV(w, book)
	}
	if err != nil {
		// Headers are already out; all we can do is log.
		h.logger.Error("export failed", slog.String("error", err.Error()))
	}
}

// fetchBook resolves the customer and fetches a fresh address book snapshot.
func (h *Handler) fetchBook(ctx context.Context, email string) (*model.AddressBook, error) {
	customerID, err := h.upstream.ResolveCustomer(ctx, email)
	if err != nil {
		return nil, err
	}
	return h.upstream.GetAddressBook(ctx, customerID)
}

// dedupeBook collapses additional entries sharing an identity key with the
// default entry or an earlier additional entry. First occurrence wins.
func dedupeBook(book *model.AddressBook) *model.AddressBook {
	if book == nil {
		return &model.AddressBook{Additional: []model.Address{}}
	}

	seen := make(map[string]bool)
	if book.Default != nil {
		seen[identity.AddressKey(book.Default)] = true
	}

	out := &model.AddressBook{
		Default:    book.Default,
		Additional: make([]model.Address, 0, len(book.Additional)),
	}
	for _, addr := range book.Additional {
		key := identity.AddressKey(&addr)
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Additional = append(out.Additional, addr)
	}
	return out
}
