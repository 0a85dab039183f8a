package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/chart"
	"ledgerbook/internal/logger"
	"ledgerbook/internal/services"
	"ledgerbook/internal/store"
	"ledgerbook/internal/testutil"
	"ledgerbook/internal/validator"
	"ledgerbook/internal/valuation"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// testApp holds the full application stack over an in-memory database.
type testApp struct {
	router *gin.Engine
}

func setupApp(t *testing.T, opts Options) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	st := store.NewGormStore(db)
	revaluer := services.NewRevaluer(&valuation.TaxTable{}, nil)
	locker := services.NewLedgerLocker()

	svc := Services{
		Categories:   services.NewCategoryService(st),
		Ledgers:      services.NewLedgerService(st, revaluer, locker),
		Transactions: services.NewTransactionService(st, revaluer, locker, 0.01),
		Snapshots:    services.NewSnapshotService(st, revaluer, locker),
		Charts:       services.NewChartService(st, revaluer, chart.NewCache(time.Minute)),
		Audit:        services.NewAuditService(st),
	}
	return &testApp{router: New(svc, opts)}
}

func (app *testApp) request(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result), "body: %s", rec.Body.String())
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	require.True(t, ok, "expected error object, got %s", rec.Body.String())
	return errObj["code"].(string)
}

// createLedger creates a category and a ledger in it and returns the ledger id.
func (app *testApp) createLedger(t *testing.T, name, currency string) string {
	t.Helper()

	rec := app.request("POST", "/api/v1/categories",
		`{"region":"US","category_type":"cash","redeem_location":"US"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	categoryID := parseJSON(t, rec)["category"].(map[string]interface{})["id"].(string)

	rec = app.request("POST", "/api/v1/ledgers",
		fmt.Sprintf(`{"name":%q,"asset_category_id":%q,"base_currency":%q}`, name, categoryID, currency))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return parseJSON(t, rec)["ledger"].(map[string]interface{})["id"].(string)
}

func (app *testApp) post(t *testing.T, body string) map[string]interface{} {
	t.Helper()
	rec := app.request("POST", "/api/v1/transactions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return parseJSON(t, rec)
}

func (app *testApp) balance(t *testing.T, ledgerID string) float64 {
	t.Helper()
	rec := app.request("GET", "/api/v1/ledgers/"+ledgerID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return parseJSON(t, rec)["ledger"].(map[string]interface{})["balance"].(float64)
}

func TestHealth(t *testing.T) {
	app := setupApp(t, Options{})

	rec := app.request("GET", "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", parseJSON(t, rec)["status"])
}

func TestLedgerFlow(t *testing.T) {
	app := setupApp(t, Options{})
	ledgerID := app.createLedger(t, "Wallet", "USD")

	first := app.post(t, fmt.Sprintf(
		`{"ledger_id":%q,"transaction_type":"income","amount":100,"currency":"USD","event_time":"2024-01-01"}`, ledgerID))
	assert.Equal(t, float64(0), first["position"])

	second := app.post(t, fmt.Sprintf(
		`{"ledger_id":%q,"transaction_type":"expense","amount":30,"currency":"USD","event_time":"2024-01-03"}`, ledgerID))
	assert.Equal(t, float64(1), second["position"])

	assert.Equal(t, float64(70), app.balance(t, ledgerID))

	// Back-dated insert lands in the middle of the log.
	mid := app.post(t, fmt.Sprintf(
		`{"ledger_id":%q,"transaction_type":"income","amount":10,"currency":"USD","event_time":"2024-01-02"}`, ledgerID))
	assert.Equal(t, float64(1), mid["position"])
	assert.Equal(t, float64(80), app.balance(t, ledgerID))

	rec := app.request("POST", "/api/v1/ledgers/"+ledgerID+"/snapshots/generate?as_of=2024-01-02", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	snap := parseJSON(t, rec)["snapshot"].(map[string]interface{})
	assert.Equal(t, float64(110), snap["balance"])

	rec = app.request("GET", "/api/v1/ledgers/"+ledgerID+"/snapshots/latest", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	latest := parseJSON(t, rec)["snapshot"].(map[string]interface{})
	assert.True(t, strings.HasPrefix(latest["snapshot_date"].(string), "2024-01-03"))
	assert.Equal(t, float64(80), latest["balance"])

	rec = app.request("GET", "/api/v1/ledgers/"+ledgerID+"/chart?start=2024-01-01&end=2024-01-03", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	points := parseJSON(t, rec)["chart"].(map[string]interface{})["points"].([]interface{})
	require.Len(t, points, 3)
	balances := make([]float64, len(points))
	for i, p := range points {
		balances[i] = p.(map[string]interface{})["balance"].(float64)
	}
	assert.Equal(t, []float64{100, 110, 80}, balances)

	rec = app.request("GET", "/api/v1/ledgers/"+ledgerID+"/chart?format=png", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	rec = app.request("GET", "/api/v1/ledgers/"+ledgerID+"/transactions?type=income", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), parseJSON(t, rec)["total_items"])

	rec = app.request("GET", "/api/v1/ledgers/"+ledgerID+"/summary", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := parseJSON(t, rec)["summary"].(map[string]interface{})
	assert.Equal(t, float64(3), summary["transaction_count"])

	// Deleting the expense raises today's balance and refreshes stored snapshots.
	expenseID := second["transaction"].(map[string]interface{})["id"].(string)
	rec = app.request("DELETE", "/api/v1/transactions/"+expenseID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(110), app.balance(t, ledgerID))

	rec = app.request("GET", "/api/v1/ledgers/"+ledgerID+"/snapshots/latest", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(110), parseJSON(t, rec)["snapshot"].(map[string]interface{})["balance"])
}

func TestTransferFlow(t *testing.T) {
	app := setupApp(t, Options{})
	a := app.createLedger(t, "A", "USD")
	b := app.createLedger(t, "B", "USD")

	app.post(t, fmt.Sprintf(
		`{"ledger_id":%q,"transaction_type":"income","amount":200,"currency":"USD","event_time":"2024-01-01"}`, a))

	transfer := app.post(t, fmt.Sprintf(
		`{"ledger_id":%q,"to_ledger_id":%q,"transaction_type":"transfer","amount":50,"currency":"USD","event_time":"2024-01-02"}`, a, b))
	assert.Equal(t, float64(150), app.balance(t, a))
	assert.Equal(t, float64(50), app.balance(t, b))

	t.Run("missing target leaves balances unchanged", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/transactions", fmt.Sprintf(
			`{"ledger_id":%q,"to_ledger_id":"0190a5f6-0000-7000-8000-000000000000","transaction_type":"transfer","amount":50,"currency":"USD","event_time":"2024-01-03"}`, a))
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Equal(t, "INVALID_TRANSFER", errorCode(t, rec))
		assert.Equal(t, float64(150), app.balance(t, a))
		assert.Equal(t, float64(50), app.balance(t, b))
	})

	t.Run("linked ledger cannot be deleted", func(t *testing.T) {
		rec := app.request("DELETE", "/api/v1/ledgers/"+b, "")
		require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
		assert.Equal(t, "LEDGER_IN_USE", errorCode(t, rec))
	})

	t.Run("target lists the transfer", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/ledgers/"+b+"/transactions", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, float64(1), parseJSON(t, rec)["total_items"])
	})

	t.Run("type change from transfer rejected", func(t *testing.T) {
		id := transfer["transaction"].(map[string]interface{})["id"].(string)
		rec := app.request("PUT", "/api/v1/transactions/"+id, `{"transaction_type":"income"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Equal(t, "INVALID_TYPE_CHANGE", errorCode(t, rec))
	})

	t.Run("delete restores both sides", func(t *testing.T) {
		id := transfer["transaction"].(map[string]interface{})["id"].(string)
		rec := app.request("DELETE", "/api/v1/transactions/"+id, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, float64(200), app.balance(t, a))
		assert.Equal(t, float64(0), app.balance(t, b))

		rec = app.request("DELETE", "/api/v1/ledgers/"+b, "")
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func TestNotFound(t *testing.T) {
	app := setupApp(t, Options{})

	cases := []struct {
		path string
		code string
	}{
		{"/api/v1/categories/missing", "CATEGORY_NOT_FOUND"},
		{"/api/v1/ledgers/missing", "LEDGER_NOT_FOUND"},
		{"/api/v1/transactions/missing", "TRANSACTION_NOT_FOUND"},
	}
	for _, tc := range cases {
		rec := app.request("GET", tc.path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, tc.path)
		assert.Equal(t, tc.code, errorCode(t, rec), tc.path)
	}

	ledgerID := app.createLedger(t, "Empty", "USD")
	rec := app.request("GET", "/api/v1/ledgers/"+ledgerID+"/snapshots/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SNAPSHOT_NOT_FOUND", errorCode(t, rec))
}

func TestRateLimited(t *testing.T) {
	app := setupApp(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2})

	for i := 0; i < 2; i++ {
		rec := app.request("GET", "/api/v1/categories", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := app.request("GET", "/api/v1/categories", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, rec))

	// Health is outside the limited group.
	assert.Equal(t, http.StatusOK, app.request("GET", "/api/health", "").Code)
}
