package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/services"
)

// SnapshotHandler handles ledger snapshot requests.
type SnapshotHandler struct {
	snapshotService services.SnapshotServicer
	auditService    services.AuditServicer
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(snapshotService services.SnapshotServicer, auditService services.AuditServicer) *SnapshotHandler {
	return &SnapshotHandler{snapshotService: snapshotService, auditService: auditService}
}

// GenerateSnapshot handles on-demand snapshot generation
// @Summary     Generate a snapshot
// @Description Values the ledger as of the end of the as_of day (UTC) and stores it. Regenerating a day overwrites it.
// @Tags        snapshots
// @Produce     json
// @Param       id    path  string true  "Ledger ID"
// @Param       as_of query string false "Snapshot day (RFC3339 or YYYY-MM-DD, default today)"
// @Success     201 {object} models.LedgerSnapshot "Snapshot"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Ledger not found"
// @Router      /ledgers/{id}/snapshots/generate [post]
func (h *SnapshotHandler) GenerateSnapshot(c *gin.Context) {
	asOf, err := parseOptionalTime(c, "as_of")
	if err != nil {
		respondWithError(c, err)
		return
	}
	if asOf == nil {
		now := time.Now().UTC()
		asOf = &now
	}

	snapshot, err := h.snapshotService.Generate(c.Param("id"), *asOf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("GENERATE_SNAPSHOT", "ledger_snapshot", snapshot.UID, c.ClientIP(),
		map[string]interface{}{"ledger_id": snapshot.LedgerUID, "snapshot_date": snapshot.SnapshotDate.Format("2006-01-02")})

	c.JSON(http.StatusCreated, gin.H{"snapshot": snapshot})
}

// ListSnapshots handles listing a ledger's snapshots
// @Summary     List snapshots
// @Description Paginated snapshots, newest first
// @Tags        snapshots
// @Produce     json
// @Param       id        path  string true  "Ledger ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.LedgerSnapshot] "Paginated snapshots"
// @Failure     404 {object} ErrorResponse "Ledger not found"
// @Router      /ledgers/{id}/snapshots [get]
func (h *SnapshotHandler) ListSnapshots(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	result, err := h.snapshotService.ListSnapshots(c.Param("id"), page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLatestSnapshot handles reading the most recent snapshot
// @Summary     Get the latest snapshot
// @Tags        snapshots
// @Produce     json
// @Param       id path string true "Ledger ID"
// @Success     200 {object} models.LedgerSnapshot "Snapshot"
// @Failure     404 {object} ErrorResponse "Ledger or snapshot not found"
// @Router      /ledgers/{id}/snapshots/latest [get]
func (h *SnapshotHandler) GetLatestSnapshot(c *gin.Context) {
	snapshot, err := h.snapshotService.GetLatestSnapshot(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshot": snapshot})
}

// GetSnapshotChart handles the stored snapshot series
// @Summary     Get the stored snapshot series
// @Description Stored snapshots only, ascending by date
// @Tags        snapshots
// @Produce     json
// @Param       id    path  string true  "Ledger ID"
// @Param       start query string false "Window start (RFC3339 or YYYY-MM-DD)"
// @Param       end   query string false "Window end (RFC3339 or YYYY-MM-DD)"
// @Success     200 {array}  models.LedgerSnapshot "Snapshots"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Ledger not found"
// @Router      /ledgers/{id}/snapshots/chart [get]
func (h *SnapshotHandler) GetSnapshotChart(c *gin.Context) {
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

	snapshots, err := h.snapshotService.GetSnapshotChart(c.Param("id"), start, end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}
