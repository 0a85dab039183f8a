package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/services"
)

// --- mock transaction service ---

type mockTransactionService struct {
	createTransactionFn     func(input services.CreateTransactionInput) (*services.TransactionResult, error)
	getTransactionByUIDFn   func(uid string) (*models.Transaction, error)
	getLedgerTransactionsFn func(ledgerUID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	updateTransactionFn     func(uid string, input services.UpdateTransactionInput) (*services.TransactionResult, error)
	deleteTransactionFn     func(uid string) error
}

func (m *mockTransactionService) CreateTransaction(input services.CreateTransactionInput) (*services.TransactionResult, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(input)
	}
	return &services.TransactionResult{Transaction: &models.Transaction{}}, nil
}

func (m *mockTransactionService) GetTransactionByUID(uid string) (*models.Transaction, error) {
	if m.getTransactionByUIDFn != nil {
		return m.getTransactionByUIDFn(uid)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetLedgerTransactions(ledgerUID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getLedgerTransactionsFn != nil {
		return m.getLedgerTransactionsFn(ledgerUID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) UpdateTransaction(uid string, input services.UpdateTransactionInput) (*services.TransactionResult, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(uid, input)
	}
	return &services.TransactionResult{Transaction: &models.Transaction{}}, nil
}

func (m *mockTransactionService) DeleteTransaction(uid string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(uid)
	}
	return nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	r.POST("/transactions", handler.CreateTransaction)
	r.GET("/transactions/:id", handler.GetTransaction)
	r.PUT("/transactions/:id", handler.UpdateTransaction)
	r.DELETE("/transactions/:id", handler.DeleteTransaction)
	r.GET("/ledgers/:id/transactions", handler.GetLedgerTransactions)
	return r
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.CreateTransactionInput
		svc := &mockTransactionService{
			createTransactionFn: func(input services.CreateTransactionInput) (*services.TransactionResult, error) {
				got = input
				return &services.TransactionResult{
					Transaction: &models.Transaction{
						Base:            models.Base{UID: "tx-1"},
						LedgerUID:       input.LedgerUID,
						Type:            input.Type,
						Amount:          input.Amount,
						Currency:        "EUR",
						RateToBase:      input.RateToBase,
						ConvertedAmount: 110,
						EventTime:       input.EventTime,
					},
					Position: 3,
				}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions",
			`{"ledger_id":"led-1","transaction_type":"income","amount":100,"currency":"EUR","rate_to_base":1.1,"event_time":"2024-01-01T12:00:00+08:00","purpose":"salary"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.EventTime.Equal(time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected event time %v", got.EventTime)
		}
		if got.ConvertedAmount != nil {
			t.Error("expected converted_amount left for the service to compute")
		}

		result := parseJSON(t, rec)
		if result["position"].(float64) != 3 {
			t.Errorf("expected position 3, got %v", result["position"])
		}
		tx := result["transaction"].(map[string]interface{})
		if tx["id"] != "tx-1" || tx["converted_amount"].(float64) != 110 {
			t.Errorf("unexpected transaction %v", tx)
		}
	})

	t.Run("passes transfer target", func(t *testing.T) {
		var got services.CreateTransactionInput
		svc := &mockTransactionService{
			createTransactionFn: func(input services.CreateTransactionInput) (*services.TransactionResult, error) {
				got = input
				return &services.TransactionResult{Transaction: &models.Transaction{}}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions",
			`{"ledger_id":"led-1","to_ledger_id":"led-2","transaction_type":"transfer","amount":50,"currency":"USD","event_time":"2024-01-02"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.ToLedgerUID == nil || *got.ToLedgerUID != "led-2" {
			t.Errorf("expected to_ledger_id led-2, got %v", got.ToLedgerUID)
		}
	})

	t.Run("returns 400 on invalid transfer", func(t *testing.T) {
		svc := &mockTransactionService{
			createTransactionFn: func(services.CreateTransactionInput) (*services.TransactionResult, error) {
				return nil, apperrors.ErrInvalidTransfer
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions",
			`{"ledger_id":"led-1","to_ledger_id":"missing","transaction_type":"transfer","amount":50,"currency":"USD","event_time":"2024-01-02"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_TRANSFER")
	})

	t.Run("returns 409 on failed transfer", func(t *testing.T) {
		svc := &mockTransactionService{
			createTransactionFn: func(services.CreateTransactionInput) (*services.TransactionResult, error) {
				return nil, apperrors.ErrTransferFailed
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions",
			`{"ledger_id":"led-1","to_ledger_id":"led-2","transaction_type":"transfer","amount":50,"currency":"USD","event_time":"2024-01-02"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSFER_FAILED")
	})

	t.Run("returns 400 on missing event_time", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions",
			`{"ledger_id":"led-1","transaction_type":"income","amount":100,"currency":"USD"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "VALIDATION_ERROR")
	})

	t.Run("returns 400 on malformed event_time", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions",
			`{"ledger_id":"led-1","transaction_type":"income","amount":100,"currency":"USD","event_time":"last tuesday"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_UpdateTransaction(t *testing.T) {
	t.Run("passes only given fields", func(t *testing.T) {
		var got services.UpdateTransactionInput
		svc := &mockTransactionService{
			updateTransactionFn: func(uid string, input services.UpdateTransactionInput) (*services.TransactionResult, error) {
				got = input
				return &services.TransactionResult{Transaction: &models.Transaction{Base: models.Base{UID: uid}}}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/transactions/tx-1", `{"amount":150,"event_time":"2024-02-01"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Amount == nil || *got.Amount != 150 {
			t.Errorf("expected amount 150, got %v", got.Amount)
		}
		if got.EventTime == nil || !got.EventTime.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected event time %v", got.EventTime)
		}
		if got.Type != nil || got.Currency != nil || got.Purpose != nil {
			t.Error("expected omitted fields to stay nil")
		}
	})

	t.Run("returns 400 on type change to transfer", func(t *testing.T) {
		svc := &mockTransactionService{
			updateTransactionFn: func(string, services.UpdateTransactionInput) (*services.TransactionResult, error) {
				return nil, apperrors.ErrInvalidTypeChange
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/transactions/tx-1", `{"transaction_type":"transfer"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_TYPE_CHANGE")
	})
}

func TestTransactionHandler_GetLedgerTransactions(t *testing.T) {
	t.Run("parses filters", func(t *testing.T) {
		var got services.TransactionFilter
		svc := &mockTransactionService{
			getLedgerTransactionsFn: func(_ string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				got = filter
				resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/ledgers/led-1/transactions?type=expense&from_date=2024-01-01", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Type == nil || *got.Type != models.TransactionTypeExpense {
			t.Errorf("expected expense filter, got %v", got.Type)
		}
		if got.FromDate == nil || got.ToDate != nil {
			t.Errorf("expected only from_date, got %v %v", got.FromDate, got.ToDate)
		}
	})

	t.Run("returns 400 on unknown type", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/ledgers/led-1/transactions?type=dividend", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	t.Run("returns 409 for realized gain", func(t *testing.T) {
		svc := &mockTransactionService{
			deleteTransactionFn: func(string) error { return apperrors.ErrTransactionInUse },
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/transactions/tx-1", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_IN_USE")
	})

	t.Run("returns 200 and audits", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, audit))

		rec := doRequest(r, "DELETE", "/transactions/tx-1", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(audit.entries) != 1 || audit.entries[0].resourceUID != "tx-1" {
			t.Errorf("unexpected audit entries %v", audit.entries)
		}
	})
}
