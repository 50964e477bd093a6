package authcore

import (
	"context"
	"time"
)

// Audit event types emitted by the engine.
const (
	AuditLogin             = "login"
	AuditRefresh           = "refresh"
	AuditRefreshReuse      = "refresh_reuse_detected"
	AuditValidate          = "validate"
	AuditLogout            = "logout"
	AuditAccountCreated    = "account_created"
	AuditAccountUpdated    = "account_updated"
	AuditAccountDeactivate = "account_deactivated"
	AuditAccountDeleted    = "account_deleted"
	AuditCacheEvicted      = "cache_evicted"
)

func (e *Engine) emitAudit(ctx context.Context, eventType, subjectID string, success bool, err error, meta map[string]string) {
	if e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SubjectID: subjectID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  meta,
	}
	if err != nil {
		event.Error = err.Error()
	}
	e.audit.Emit(ctx, event)
}
