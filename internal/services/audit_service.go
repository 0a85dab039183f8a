package services

import (
	"encoding/json"

	"ledgerbook/internal/logger"
	"ledgerbook/internal/models"
	"ledgerbook/internal/store"
)

// auditService handles audit log recording.
type auditService struct {
	store store.Store
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(st store.Store) AuditServicer {
	return &auditService{store: st}
}

// Log records an audit event. Errors are logged but never propagate
// to avoid disrupting the main operation.
func (s *auditService) Log(action, resourceType, resourceUID, ipAddress string, changes map[string]interface{}) {
	var changesJSON string
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		Action:       action,
		ResourceType: resourceType,
		ResourceUID:  resourceUID,
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}

	if err := s.store.CreateAuditLog(entry); err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceUID,
		)
	}
}
