package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"storefront-bridge/internal/adapter"
	"storefront-bridge/internal/config"
	"storefront-bridge/internal/model"
)

func testReconciler(m *adapter.Mock) *Reconciler {
	defaults := config.Defaults{
		FallbackCountry:      "FR",
		OrganizationSentinel: "Distribution",
		StateSentinel:        "NA",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(m, defaults, logger)
}

// bookBackedMock simulates an upstream whose create endpoint assigns
// identifiers server-side without returning them, observable only through a
// subsequent book fetch.
func bookBackedMock(book *model.AddressBook, nextID *int) *adapter.Mock {
	return &adapter.Mock{
		GetAddressBookFunc: func(ctx context.Context, customerID string) (*model.AddressBook, error) {
			snapshot := *book
			snapshot.Additional = append([]model.Address(nil), book.Additional...)
			return &snapshot, nil
		},
		CreateAddressFunc: func(ctx context.Context, customerID string, addr *model.Address) error {
			*nextID++
			stored := *addr
			stored.ID = strconv.Itoa(*nextID)
			book.Additional = append(book.Additional, stored)
			return nil
		},
	}
}

func TestReconcileCreateResolvesID(t *testing.T) {
	book := &model.AddressBook{}
	nextID := 100
	r := testReconciler(bookBackedMock(book, &nextID))

	batch := []model.Address{
		{Street1: "10 Rue Neuve", City: "Lyon", Postal: "69000", Country: "FR"},
	}
	snapshot, _ := r.upstream.GetAddressBook(context.Background(), "1")
	outcomes := r.Reconcile(context.Background(), "1", batch, snapshot)

	if len(outcomes) != 1 {
		t.Fatalf("outcomes = %d, want 1", len(outcomes))
	}
	out := outcomes[0]
	if out.Action != ActionCreated {
		t.Fatalf("Action = %q, want created (err: %v)", out.Action, out.Err)
	}
	if out.AddressID != "101" {
		t.Errorf("AddressID = %q, want 101", out.AddressID)
	}
}

func TestReconcileSkipsExistingNormalized(t *testing.T) {
	// The book entry differs in case, spacing and apostrophe style; the
	// identity key still matches and no upstream write happens.
	var created int
	m := &adapter.Mock{
		CreateAddressFunc: func(ctx context.Context, customerID string, addr *model.Address) error {
			created++
			return nil
		},
	}
	r := testReconciler(m)

	book := &model.AddressBook{
		Additional: []model.Address{
			{ID: "7", Street1: "10 Rue de l’Église", City: "LYON", Postal: "69000", Country: "fr"},
		},
	}
	batch := []model.Address{
		{Street1: "10  rue de l'église", City: "Lyon", Postal: " 69000 ", Country: "FR"},
	}

	outcomes := r.Reconcile(context.Background(), "1", batch, book)
	if outcomes[0].Action != ActionSkipped {
		t.Fatalf("Action = %q, want skipped", outcomes[0].Action)
	}
	if outcomes[0].AddressID != "7" {
		t.Errorf("AddressID = %q, want 7", outcomes[0].AddressID)
	}
	if created != 0 {
		t.Errorf("CreateAddress called %d times, want 0", created)
	}
}

func TestReconcileInRunDuplicate(t *testing.T) {
	// Same place twice in one batch: first creates, second skips against the
	// in-memory key set without re-fetching or re-submitting.
	book := &model.AddressBook{}
	nextID := 0
	m := bookBackedMock(book, &nextID)
	var creates int
	inner := m.CreateAddressFunc
	m.CreateAddressFunc = func(ctx context.Context, customerID string, addr *model.Address) error {
		creates++
		return inner(ctx, customerID, addr)
	}
	r := testReconciler(m)

	batch := []model.Address{
		{Street1: "10 Rue Neuve", City: "Lyon", Postal: "69000", Country: "FR"},
		{Street1: "10 RUE NEUVE", City: "lyon", Postal: "69000", Country: "fr"},
	}
	outcomes := r.Reconcile(context.Background(), "1", batch, &model.AddressBook{})

	if outcomes[0].Action != ActionCreated || outcomes[1].Action != ActionSkipped {
		t.Fatalf("actions = %q/%q, want created/skipped", outcomes[0].Action, outcomes[1].Action)
	}
	if creates != 1 {
		t.Errorf("CreateAddress called %d times, want 1", creates)
	}
	if outcomes[1].AddressID != outcomes[0].AddressID {
		t.Errorf("duplicate resolved to %q, want %q", outcomes[1].AddressID, outcomes[0].AddressID)
	}
}

func TestReconcileExplicitIDUpdates(t *testing.T) {
	var updated *model.Address
	m := &adapter.Mock{
		UpdateAddressFunc: func(ctx context.Context, customerID string, addr *model.Address) error {
			updated = addr
			return nil
		},
	}
	r := testReconciler(m)

	batch := []model.Address{
		{ID: "42", Street1: "1 Rue X", City: "Paris", Postal: "75001", Country: "FR"},
	}
	outcomes := r.Reconcile(context.Background(), "1", batch, &model.AddressBook{})

	if outcomes[0].Action != ActionUpdated {
		t.Fatalf("Action = %q, want updated", outcomes[0].Action)
	}
	if updated == nil || updated.ID != "42" {
		t.Errorf("UpdateAddress got %+v", updated)
	}
}

func TestReconcileTemplateFallback(t *testing.T) {
	book := &model.AddressBook{
		Default: &model.Address{
			ID: "1", Organization: "ACME", FirstName: "Jean", LastName: "Dupont",
			Street1: "HQ", City: "Lyon", Postal: "69001", Country: "FR",
			Phone: "0400000000", Email: "jean@acme.example",
		},
	}
	var created *model.Address
	m := &adapter.Mock{
		CreateAddressFunc: func(ctx context.Context, customerID string, addr *model.Address) error {
			created = addr
			return errors.New("stop after capture")
		},
	}
	r := testReconciler(m)

	batch := []model.Address{
		{Organization: "Branch", Street1: "1 Rue X", City: "Paris", Postal: "75001", Country: "FR"},
	}
	r.Reconcile(context.Background(), "1", batch, book)

	if created == nil {
		t.Fatal("CreateAddress never called")
	}
	if created.Organization != "Branch" {
		t.Errorf("Organization = %q, record value must win over template", created.Organization)
	}
	if created.FirstName != "Jean" || created.LastName != "Dupont" {
		t.Errorf("names = %q %q, want filled from template", created.FirstName, created.LastName)
	}
	if created.Phone != "0400000000" || created.Email != "jean@acme.example" {
		t.Errorf("contact fields not filled from template: %+v", created)
	}
}

func TestReconcileUnresolvedCreate(t *testing.T) {
	// Create succeeds but the refreshed book never shows the record.
	m := &adapter.Mock{} // default GetAddressBook returns an empty book
	r := testReconciler(m)

	batch := []model.Address{
		{Street1: "10 Rue Neuve", City: "Lyon", Postal: "69000", Country: "FR"},
	}
	outcomes := r.Reconcile(context.Background(), "1", batch, &model.AddressBook{})

	if outcomes[0].Action != ActionFailed {
		t.Fatalf("Action = %q, want failed", outcomes[0].Action)
	}
	if !errors.Is(outcomes[0].Err, model.ErrUnresolvedID) {
		t.Errorf("Err = %v, want ErrUnresolvedID", outcomes[0].Err)
	}
}

func TestReconcileIsolatesFailures(t *testing.T) {
	book := &model.AddressBook{}
	nextID := 0
	m := bookBackedMock(book, &nextID)
	inner := m.CreateAddressFunc
	m.CreateAddressFunc = func(ctx context.Context, customerID string, addr *model.Address) error {
		if addr.City == "Paris" {
			return model.NewUpstreamError("store", 500, "boom", errors.New("boom"))
		}
		return inner(ctx, customerID, addr)
	}
	r := testReconciler(m)

	batch := []model.Address{
		{Street1: "1 Rue X", City: "Paris", Postal: "75001", Country: "FR"},
		{Street1: "10 Rue Neuve", City: "Lyon", Postal: "69000", Country: "FR"},
	}
	outcomes := r.Reconcile(context.Background(), "1", batch, &model.AddressBook{})

	if outcomes[0].Action != ActionFailed {
		t.Errorf("first Action = %q, want failed", outcomes[0].Action)
	}
	if outcomes[1].Action != ActionCreated {
		t.Errorf("second Action = %q, want created despite earlier failure", outcomes[1].Action)
	}
}

func TestImportSummaryCounts(t *testing.T) {
	book := &model.AddressBook{
		Additional: []model.Address{
			{ID: "5", Street1: "Old Place", City: "Nice", Postal: "06000", Country: "FR"},
		},
	}
	nextID := 0
	r := testReconciler(bookBackedMock(book, &nextID))

	records := []model.Address{
		{Street1: "10 Rue Neuve", City: "Lyon", Postal: "69000", Country: "FR"},
		{Street1: "10 rue neuve", City: "LYON", Postal: "69000", Country: "FR"}, // in-batch dup, collapsed
		{Street1: "Old Place", City: "Nice", Postal: "06000", Country: "FR"},    // already in book
		{ID: "5", Street1: "Old Place", City: "Nice", Postal: "06000", Country: "FR"},
	}
	summary, err := r.Import(context.Background(), "1", records)
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}

	if summary.TotalParsed != 4 {
		t.Errorf("TotalParsed = %d, want 4", summary.TotalParsed)
	}
	if summary.TotalImported != 3 {
		t.Errorf("TotalImported = %d, want 3 (one in-batch duplicate collapsed)", summary.TotalImported)
	}
	if summary.CreatedCount != 1 || summary.UpdatedCount != 1 || summary.SkippedCount != 1 {
		t.Errorf("created/updated/skipped = %d/%d/%d, want 1/1/1",
			summary.CreatedCount, summary.UpdatedCount, summary.SkippedCount)
	}
	if !summary.OK || summary.ErrorCount != 0 {
		t.Errorf("OK = %v, ErrorCount = %d", summary.OK, summary.ErrorCount)
	}
	if len(summary.Skipped) != 1 || summary.Skipped[0].Row != 3 {
		t.Errorf("Skipped = %+v, want one diagnostic at row 3", summary.Skipped)
	}
}

func TestImportIdempotent(t *testing.T) {
	book := &model.AddressBook{}
	nextID := 0
	r := testReconciler(bookBackedMock(book, &nextID))

	records := []model.Address{
		{Street1: "10 Rue Neuve", City: "Lyon", Postal: "69000", Country: "FR"},
		{Street1: "1 Rue X", City: "Paris", Postal: "75001", Country: "FR"},
	}
	first, err := r.Import(context.Background(), "1", records)
	if err != nil {
		t.Fatal(err)
	}
	if first.CreatedCount != 2 {
		t.Fatalf("first run CreatedCount = %d, want 2", first.CreatedCount)
	}

	second, err := r.Import(context.Background(), "1", records)
	if err != nil {
		t.Fatal(err)
	}
	if second.CreatedCount != 0 || second.SkippedCount != 2 {
		t.Errorf("second run created/skipped = %d/%d, want 0/2",
			second.CreatedCount, second.SkippedCount)
	}
}

func TestImportDiagnosticsUseInputRows(t *testing.T) {
	// An in-batch duplicate collapses silently, but a later record's
	// diagnostic must still point at its position in the submitted batch,
	// not its shifted position after dedup.
	book := &model.AddressBook{}
	nextID := 0
	m := bookBackedMock(book, &nextID)
	inner := m.CreateAddressFunc
	m.CreateAddressFunc = func(ctx context.Context, customerID string, addr *model.Address) error {
		if addr.City == "Paris" {
			return model.NewUpstreamError("store", 500, "boom", errors.New("boom"))
		}
		return inner(ctx, customerID, addr)
	}
	r := testReconciler(m)

	records := []model.Address{
		{Street1: "10 Rue Neuve", City: "Lyon", Postal: "69000", Country: "FR"},
		{Street1: "10 rue neuve", City: "LYON", Postal: "69000", Country: "FR"}, // collapsed
		{Street1: "1 Rue X", City: "Paris", Postal: "75001", Country: "FR"},
	}
	summary, err := r.Import(context.Background(), "1", records)
	if err != nil {
		t.Fatal(err)
	}

	if summary.CreatedCount != 1 || summary.ErrorCount != 1 {
		t.Fatalf("created/errors = %d/%d, want 1/1", summary.CreatedCount, summary.ErrorCount)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].Row != 3 {
		t.Errorf("Errors = %+v, want one diagnostic at input row 3", summary.Errors)
	}
}

func TestImportReportsUpstreamStatus(t *testing.T) {
	m := &adapter.Mock{
		CreateAddressFunc: func(ctx context.Context, customerID string, addr *model.Address) error {
			return model.NewUpstreamError("store", 503, "maintenance", errors.New("maintenance"))
		},
	}
	r := testReconciler(m)

	records := []model.Address{
		{Street1: "10 Rue Neuve", City: "Lyon", Postal: "69000", Country: "FR"},
	}
	summary, err := r.Import(context.Background(), "1", records)
	if err != nil {
		t.Fatal(err)
	}
	if summary.OK {
		t.Error("OK = true, want false")
	}
	if len(summary.Errors) != 1 || summary.Errors[0].UpstreamStatus != 503 {
		t.Errorf("Errors = %+v, want upstreamStatus 503", summary.Errors)
	}
}

func TestMergeLines(t *testing.T) {
	lines := []model.DistributionLine{
		{Address: "10 Rue Neuve", Postal: "69000", City: "Lyon", Country: "FR", Quantity: 2},
		{Address: "1 Rue X", Postal: "75001", City: "Paris", Country: "FR", Quantity: 1},
		{Address: "10 rue neuve", Postal: "69000", City: "LYON", Country: "fr", Quantity: 3},
		{Address: "Somewhere", Postal: "13001", City: "Marseille", Country: "FR", Quantity: 0},
	}
	merged := MergeLines(lines)

	if len(merged) != 2 {
		t.Fatalf("merged = %d lines, want 2", len(merged))
	}
	if merged[0].Quantity != 5 {
		t.Errorf("merged quantity = %d, want 5", merged[0].Quantity)
	}
	if merged[0].Address != "10 Rue Neuve" {
		t.Errorf("spelling = %q, want first occurrence kept", merged[0].Address)
	}
}

func TestResolveDistribution(t *testing.T) {
	book := &model.AddressBook{
		Default: &model.Address{ID: "1", FirstName: "Jean", Street1: "HQ", City: "Lyon", Postal: "69001", Country: "FR"},
		Additional: []model.Address{
			{ID: "7", Street1: "10 Rue Neuve", City: "Lyon", Postal: "69000", Country: "FR"},
		},
	}
	nextID := 50
	r := testReconciler(bookBackedMock(book, &nextID))

	lines := []model.DistributionLine{
		{Address: "10 Rue Neuve", Postal: "69000", City: "Lyon", Quantity: 2},
		{Address: "1 Rue X", Postal: "75001", City: "Paris", Quantity: 1},
	}
	resolved, err := r.ResolveDistribution(context.Background(), "1", lines)
	if err != nil {
		t.Fatalf("ResolveDistribution() error: %v", err)
	}

	if len(resolved) != 2 {
		t.Fatalf("resolved = %d lines, want 2", len(resolved))
	}
	if resolved[0].AddressID != "7" {
		t.Errorf("existing line AddressID = %q, want 7", resolved[0].AddressID)
	}
	if resolved[1].AddressID != "51" {
		t.Errorf("created line AddressID = %q, want 51", resolved[1].AddressID)
	}
}

func TestResolveDistributionNoCountryReusesBookEntry(t *testing.T) {
	// A line without a country falls back to the configured default before
	// the book lookup, so the existing entry is matched directly and no
	// duplicate create goes upstream.
	book := &model.AddressBook{
		Additional: []model.Address{
			{ID: "7", Street1: "10 Rue Neuve", City: "Lyon", Postal: "69000", Country: "FR"},
		},
	}
	nextID := 0
	m := bookBackedMock(book, &nextID)
	var creates int
	inner := m.CreateAddressFunc
	m.CreateAddressFunc = func(ctx context.Context, customerID string, addr *model.Address) error {
		creates++
		return inner(ctx, customerID, addr)
	}
	r := testReconciler(m)

	lines := []model.DistributionLine{
		{Address: "10 Rue Neuve", Postal: "69000", City: "Lyon", Quantity: 2},
	}
	resolved, err := r.ResolveDistribution(context.Background(), "1", lines)
	if err != nil {
		t.Fatalf("ResolveDistribution() error: %v", err)
	}

	if resolved[0].AddressID != "7" {
		t.Errorf("AddressID = %q, want existing entry 7", resolved[0].AddressID)
	}
	if creates != 0 {
		t.Errorf("CreateAddress called %d times, want 0", creates)
	}
	if len(book.Additional) != 1 {
		t.Errorf("book grew to %d entries, want 1", len(book.Additional))
	}
}

func TestResolveDistributionAllOrNothing(t *testing.T) {
	m := &adapter.Mock{
		CreateAddressFunc: func(ctx context.Context, customerID string, addr *model.Address) error {
			return model.NewUpstreamError("store", 500, "boom", errors.New("boom"))
		},
	}
	r := testReconciler(m)

	lines := []model.DistributionLine{
		{Address: "1 Rue X", Postal: "75001", City: "Paris", Quantity: 1},
	}
	resolved, err := r.ResolveDistribution(context.Background(), "1", lines)
	if err == nil {
		t.Fatal("expected error")
	}
	if resolved != nil {
		t.Errorf("resolved = %+v, want nil on failure", resolved)
	}
}

func TestResolveDistributionEmptyAfterMerge(t *testing.T) {
	r := testReconciler(&adapter.Mock{})

	lines := []model.DistributionLine{
		{Address: "1 Rue X", Postal: "75001", City: "Paris", Quantity: 0},
	}
	if _, err := r.ResolveDistribution(context.Background(), "1", lines); !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestResolveDistributionCreatedLineDefaults(t *testing.T) {
	var created *model.Address
	book := &model.AddressBook{
		Default: &model.Address{ID: "1", FirstName: "Jean", LastName: "Dupont", Street1: "HQ", City: "Lyon", Postal: "69001", Country: "FR"},
	}
	nextID := 0
	m := bookBackedMock(book, &nextID)
	inner := m.CreateAddressFunc
	m.CreateAddressFunc = func(ctx context.Context, customerID string, addr *model.Address) error {
		created = addr
		return inner(ctx, customerID, addr)
	}
	r := testReconciler(m)

	lines := []model.DistributionLine{
		{Address: "1 Rue X", Postal: "75001", City: "Paris", Quantity: 1},
	}
	if _, err := r.ResolveDistribution(context.Background(), "1", lines); err != nil {
		t.Fatal(err)
	}

	if created == nil {
		t.Fatal("CreateAddress never called")
	}
	if created.Country != "FR" {
		t.Errorf("Country = %q, want fallback FR", created.Country)
	}
	if created.Organization != "Distribution" {
		t.Errorf("Organization = %q, want sentinel", created.Organization)
	}
	if created.State != "NA" {
		t.Errorf("State = %q, want sentinel", created.State)
	}
	if created.FirstName != "Jean" {
		t.Errorf("FirstName = %q, want filled from default address", created.FirstName)
	}
}
