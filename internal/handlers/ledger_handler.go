package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/services"
)

// LedgerHandler handles ledger requests, including the read-only summary
// and chart views.
type LedgerHandler struct {
	ledgerService services.LedgerServicer
	chartService  services.ChartServicer
	auditService  services.AuditServicer
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerService services.LedgerServicer, chartService services.ChartServicer, auditService services.AuditServicer) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		chartService:  chartService,
		auditService:  auditService,
	}
}

// CreateLedgerRequest represents the request payload for creating a ledger
type CreateLedgerRequest struct {
	Name            string `json:"name" binding:"required,max=255"`
	AssetCategoryID string `json:"asset_category_id" binding:"required,uid"`
	BaseCurrency    string `json:"base_currency" binding:"required,iso4217"`
}

// CreateLedger handles the creation of a new ledger
// @Summary     Create a ledger
// @Description Create an empty ledger in an asset category
// @Tags        ledgers
// @Accept      json
// @Produce     json
// @Param       request body CreateLedgerRequest true "Ledger details"
// @Success     201 {object} models.Ledger "Ledger created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /ledgers [post]
func (h *LedgerHandler) CreateLedger(c *gin.Context) {
	var req CreateLedgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	ledger, err := h.ledgerService.CreateLedger(req.Name, req.AssetCategoryID, req.BaseCurrency)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("CREATE_LEDGER", "ledger", ledger.UID, c.ClientIP(),
		map[string]interface{}{"name": ledger.Name, "base_currency": ledger.BaseCurrency})

	c.JSON(http.StatusCreated, gin.H{"ledger": ledger})
}

// ListLedgers handles listing ledgers
// @Summary     List ledgers
// @Tags        ledgers
// @Produce     json
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Ledger] "Paginated ledgers"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /ledgers [get]
func (h *LedgerHandler) ListLedgers(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	result, err := h.ledgerService.GetLedgers(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLedger handles reading one ledger with its derived metrics
// @Summary     Get a ledger
// @Tags        ledgers
// @Produce     json
// @Param       id path string true "Ledger ID"
// @Success     200 {object} models.Ledger "Ledger"
// @Failure     404 {object} ErrorResponse "Ledger not found"
// @Router      /ledgers/{id} [get]
func (h *LedgerHandler) GetLedger(c *gin.Context) {
	ledger, err := h.ledgerService.GetLedgerByUID(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ledger": ledger})
}

// DeleteLedger handles deleting a ledger with its history
// @Summary     Delete a ledger
// @Description Deletes the ledger, its transactions and snapshots. Ledgers linked by transfers cannot be deleted.
// @Tags        ledgers
// @Produce     json
// @Param       id path string true "Ledger ID"
// @Success     200 {object} map[string]string "Ledger deleted"
// @Failure     404 {object} ErrorResponse "Ledger not found"
// @Failure     409 {object} ErrorResponse "Ledger in use"
// @Router      /ledgers/{id} [delete]
func (h *LedgerHandler) DeleteLedger(c *gin.Context) {
	uid := c.Param("id")
	if err := h.ledgerService.DeleteLedger(uid); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("DELETE_LEDGER", "ledger", uid, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Ledger deleted successfully"})
}

// GetSummary handles the ledger summary
// @Summary     Get a ledger summary
// @Description Ledger metrics plus category, tax rate, transaction count, event span and per-type totals
// @Tags        ledgers
// @Produce     json
// @Param       id path string true "Ledger ID"
// @Success     200 {object} services.LedgerSummary "Summary"
// @Failure     404 {object} ErrorResponse "Ledger not found"
// @Router      /ledgers/{id}/summary [get]
func (h *LedgerHandler) GetSummary(c *gin.Context) {
	summary, err := h.ledgerService.GetSummary(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetChart handles the range query over a ledger's history
// @Summary     Get a ledger chart
// @Description Metrics at the window bounds, every stored snapshot date and every transaction day. Stored snapshots are used where present; other days are valued on the fly.
// @Tags        ledgers
// @Produce     json
// @Produce     png
// @Param       id     path  string true  "Ledger ID"
// @Param       start  query string false "Window start (RFC3339 or YYYY-MM-DD, default first event day)"
// @Param       end    query string false "Window end (RFC3339 or YYYY-MM-DD, default last event day)"
// @Param       format query string false "json (default) or png"
// @Success     200 {object} services.LedgerChart "Chart points"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Ledger not found"
// @Router      /ledgers/{id}/chart [get]
func (h *LedgerHandler) GetChart(c *gin.Context) {
	start, err := parseOptionalTime(c, "start")
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseOptionalTime(c, "end")
	if err != nil {
		respondWithError(c, err)
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "png":
		png, err := h.chartService.RenderChartPNG(c.Param("id"), start, end)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	case "json":
		chart, err := h.chartService.GetChart(c.Param("id"), start, end)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"chart": chart})
	default:
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, "format must be json or png"))
	}
}
