package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/services"
)

// TransactionHandler handles transaction log requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// CreateTransactionRequest represents the request payload for creating a transaction.
// rate_to_base may be omitted for base-currency transactions; converted_amount
// is computed when omitted.
type CreateTransactionRequest struct {
	LedgerID        string                 `json:"ledger_id" binding:"required,uid"`
	ToLedgerID      *string                `json:"to_ledger_id"`
	RealizesID      *string                `json:"realizes_id"`
	Type            models.TransactionType `json:"transaction_type" binding:"required"`
	Amount          float64                `json:"amount"`
	Currency        string                 `json:"currency" binding:"required,len=3"`
	RateToBase      float64                `json:"rate_to_base" binding:"gte=0"`
	ConvertedAmount *float64               `json:"converted_amount"`
	EventTime       string                 `json:"event_time" binding:"required"`
	SentTime        *string                `json:"sent_time"`
	Purpose         string                 `json:"purpose" binding:"max=500"`
	RawText         string                 `json:"raw_text" binding:"max=4000"`
}

// UpdateTransactionRequest represents a partial update. Omitted fields are kept.
type UpdateTransactionRequest struct {
	ToLedgerID      *string                 `json:"to_ledger_id"`
	RealizesID      *string                 `json:"realizes_id"`
	Type            *models.TransactionType `json:"transaction_type"`
	Amount          *float64                `json:"amount"`
	Currency        *string                 `json:"currency" binding:"omitempty,len=3"`
	RateToBase      *float64                `json:"rate_to_base"`
	ConvertedAmount *float64                `json:"converted_amount"`
	EventTime       *string                 `json:"event_time"`
	SentTime        *string                 `json:"sent_time"`
	Purpose         *string                 `json:"purpose" binding:"omitempty,max=500"`
	RawText         *string                 `json:"raw_text" binding:"omitempty,max=4000"`
}

// TransactionFilterQuery holds the list filters accepted as query parameters.
type TransactionFilterQuery struct {
	FromDate string                 `form:"from_date"`
	ToDate   string                 `form:"to_date"`
	Type     models.TransactionType `form:"type" binding:"omitempty,transaction_type"`
}

// CreateTransaction handles appending a transaction to a ledger
// @Summary     Create a transaction
// @Description Append an income, expense, transfer, gain or profit. Event times may be in the past; affected ledgers and later snapshots are re-derived.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} services.TransactionResult "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input or transfer target"
// @Failure     404 {object} ErrorResponse "Ledger not found"
// @Failure     409 {object} ErrorResponse "Transfer failed"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	eventTime, err := parseFlexibleTime(req.EventTime)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, "event_time: "+err.Error()))
		return
	}

	input := services.CreateTransactionInput{
		LedgerUID:       req.LedgerID,
		ToLedgerUID:     req.ToLedgerID,
		RealizesUID:     req.RealizesID,
		Type:            req.Type,
		Amount:          req.Amount,
		Currency:        req.Currency,
		RateToBase:      req.RateToBase,
		ConvertedAmount: req.ConvertedAmount,
		EventTime:       eventTime,
		Purpose:         req.Purpose,
		RawText:         req.RawText,
	}
	if req.SentTime != nil && *req.SentTime != "" {
		sent, err := parseFlexibleTime(*req.SentTime)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, "sent_time: "+err.Error()))
			return
		}
		input.SentTime = &sent
	}

	result, err := h.transactionService.CreateTransaction(input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("CREATE_TRANSACTION", "transaction", result.Transaction.UID, c.ClientIP(),
		map[string]interface{}{
			"ledger_id":        req.LedgerID,
			"transaction_type": req.Type,
			"amount":           req.Amount,
			"currency":         result.Transaction.Currency,
		})

	c.JSON(http.StatusCreated, result)
}

// GetLedgerTransactions handles listing a ledger's transactions
// @Summary     List ledger transactions
// @Description Paginated transactions owned by or transferred into the ledger, newest event first
// @Tags        ledgers,transactions
// @Produce     json
// @Param       id        path  string true  "Ledger ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       from_date query string false "Filter by start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date   query string false "Filter by end date (RFC3339 or YYYY-MM-DD)"
// @Param       type      query string false "Filter by transaction type"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Ledger not found"
// @Router      /ledgers/{id}/transactions [get]
func (h *TransactionHandler) GetLedgerTransactions(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	var q TransactionFilterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	var filter services.TransactionFilter
	if q.FromDate != "" {
		from, err := parseFlexibleTime(q.FromDate)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, "from_date: "+err.Error()))
			return
		}
		filter.FromDate = &from
	}
	if q.ToDate != "" {
		to, err := parseFlexibleTime(q.ToDate)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, "to_date: "+err.Error()))
			return
		}
		filter.ToDate = &to
	}
	if q.Type != "" {
		filter.Type = &q.Type
	}

	result, err := h.transactionService.GetLedgerTransactions(c.Param("id"), page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransaction handles reading one transaction
// @Summary     Get a transaction
// @Tags        transactions
// @Produce     json
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transaction, err := h.transactionService.GetTransactionByUID(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction handles a partial transaction update
// @Summary     Update a transaction
// @Description Merge the given fields into the transaction and re-derive every affected ledger. Type changes to or from transfer are rejected.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to change"
// @Success     200 {object} services.TransactionResult "Transaction updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Transaction in use or transfer failed"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	input := services.UpdateTransactionInput{
		ToLedgerUID:     req.ToLedgerID,
		RealizesUID:     req.RealizesID,
		Type:            req.Type,
		Amount:          req.Amount,
		Currency:        req.Currency,
		RateToBase:      req.RateToBase,
		ConvertedAmount: req.ConvertedAmount,
		Purpose:         req.Purpose,
		RawText:         req.RawText,
	}
	if req.EventTime != nil {
		eventTime, err := parseFlexibleTime(*req.EventTime)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, "event_time: "+err.Error()))
			return
		}
		input.EventTime = &eventTime
	}
	if req.SentTime != nil && *req.SentTime != "" {
		sent, err := parseFlexibleTime(*req.SentTime)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, "sent_time: "+err.Error()))
			return
		}
		input.SentTime = &sent
	}

	uid := c.Param("id")
	result, err := h.transactionService.UpdateTransaction(uid, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("UPDATE_TRANSACTION", "transaction", uid, c.ClientIP(),
		map[string]interface{}{"ledger_id": result.Transaction.LedgerUID, "position": result.Position})

	c.JSON(http.StatusOK, result)
}

// DeleteTransaction handles removing a transaction
// @Summary     Delete a transaction
// @Description Remove the transaction and re-derive every affected ledger. Realized gains cannot be deleted.
// @Tags        transactions
// @Produce     json
// @Param       id path string true "Transaction ID"
// @Success     200 {object} map[string]string "Transaction deleted"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Transaction in use or transfer failed"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	uid := c.Param("id")
	if err := h.transactionService.DeleteTransaction(uid); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("DELETE_TRANSACTION", "transaction", uid, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}
