package services

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mapsmyway/heli-backend/internal/database"
	"github.com/mapsmyway/heli-backend/internal/models"
	"github.com/mapsmyway/heli-backend/internal/utils"
)

// RequestMeta carries per-request client details into audit entries
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuditService writes immutable audit entries for booking and money events.
// Audit failures must never fail the request that triggered them.
type AuditService struct {
	auditRepo *database.AuditLogRepository
	logger    *logrus.Logger
	enabled   bool
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo *database.AuditLogRepository, logger *logrus.Logger, enabled bool) *AuditService {
	return &AuditService{
		auditRepo: auditRepo,
		logger:    logger,
		enabled:   enabled,
	}
}

// Log writes one audit entry, swallowing any persistence error
func (s *AuditService) Log(actorID *uuid.UUID, action, entityType string, entityID *uuid.UUID, metadata map[string]interface{}, meta RequestMeta) {
	if !s.enabled {
		return
	}

	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadata["device_info"] = utils.ParseUserAgent(meta.UserAgent)

	entry := &models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   models.JSONB(metadata),
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	}

	if err := s.auditRepo.CreateAuditLog(entry); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"action":      action,
			"entity_type": entityType,
		}).Error("Failed to write audit log")
	}
}

// LogBooking records a booking lifecycle event
func (s *AuditService) LogBooking(actorID uuid.UUID, action string, bookingID uuid.UUID, metadata map[string]interface{}, meta RequestMeta) {
	actor := actorID
	s.Log(&actor, action, "booking", &bookingID, metadata, meta)
}

// LogPayment records a payment lifecycle event. ActorID is nil for
// provider-originated events.
func (s *AuditService) LogPayment(actorID *uuid.UUID, action string, paymentID *uuid.UUID, metadata map[string]interface{}, meta RequestMeta) {
	s.Log(actorID, action, "payment", paymentID, metadata, meta)
}
