package dualauth

import (
	"context"

	"github.com/MrEthical07/dualauth/autherr"
	"github.com/MrEthical07/dualauth/internal/audit"
)

const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventLoginThrottled   = "login_throttled"
	auditEventAuthorizeFailure = "authorize_failure"
	auditEventLogout           = "logout"
)

func (e *Engine) emitAudit(ctx context.Context, eventType string, scheme Scheme, userID, sessionID string, err error) {
	if e == nil || e.audit == nil {
		return
	}

	event := audit.Event{
		Timestamp:     e.now().UTC(),
		EventType:     eventType,
		Scheme:        scheme.String(),
		UserID:        userID,
		SessionID:     sessionID,
		Caller:        CallerFromContext(ctx),
		CorrelationID: CorrelationIDFromContext(ctx),
		Success:       err == nil,
	}
	if err != nil {
		event.ErrorKind = string(autherr.KindOf(err))
		event.Metadata = map[string]string{"reason": autherr.Message(err)}
	}

	e.audit.Emit(ctx, event)
}
