package pagination

import (
	"testing"

	"ledgerbook/internal/models"
	"ledgerbook/internal/testutil"
)

func TestPageRequest_Defaults(t *testing.T) {
	tests := []struct {
		name     string
		in       PageRequest
		page     int
		pageSize int
	}{
		{"empty", PageRequest{}, 1, DefaultPageSize},
		{"kept", PageRequest{Page: 3, PageSize: 50}, 3, 50},
		{"negative", PageRequest{Page: -2, PageSize: -5}, 1, DefaultPageSize},
		{"oversized", PageRequest{Page: 1, PageSize: 5000}, 1, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.in
			req.Defaults()
			if req.Page != tt.page || req.PageSize != tt.pageSize {
				t.Errorf("expected page %d size %d, got page %d size %d", tt.page, tt.pageSize, req.Page, req.PageSize)
			}
		})
	}
}

func TestNewPageResponse(t *testing.T) {
	resp := NewPageResponse[models.Transaction](nil, 2, 20, 41)
	if resp.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", resp.TotalPages)
	}
	if resp.Data == nil {
		t.Error("expected an empty slice, not nil")
	}

	if resp := NewPageResponse[models.Transaction](nil, 1, 0, 10); resp.TotalPages != 0 {
		t.Errorf("expected 0 pages for a zero page size, got %d", resp.TotalPages)
	}
}

func TestNewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	category := testutil.CreateTestCategory(t, db, "US", "cash")
	ledger := testutil.CreateTestLedger(t, db, category)

	// Three rows on one day: only the id tie-break keeps pages disjoint.
	day := testutil.Day(2024, 5, 1)
	var ids []uint
	for i := 0; i < 3; i++ {
		ids = append(ids, testutil.CreateTestTransaction(t, db, ledger, models.TransactionTypeIncome, 10, day).ID)
	}
	older := testutil.CreateTestTransaction(t, db, ledger, models.TransactionTypeIncome, 10, testutil.Day(2024, 4, 1))

	var seen []uint
	for page := 1; page <= 2; page++ {
		var txs []models.Transaction
		req := PageRequest{Page: page, PageSize: 2}
		if err := db.Scopes(NewestFirst("event_time"), Paginate(req)).Find(&txs).Error; err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		for _, tx := range txs {
			seen = append(seen, tx.ID)
		}
	}

	want := []uint{ids[2], ids[1], ids[0], older.ID}
	if len(seen) != len(want) {
		t.Fatalf("expected %d rows across pages, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("position %d: expected id %d, got %d", i, want[i], seen[i])
		}
	}
}
