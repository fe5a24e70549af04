package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/mdnaeem95/halaltech/internal/authctx"
	"github.com/mdnaeem95/halaltech/pkg/logger"
)

// recordAudit logs the supplied entry while tolerating audit failures.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.Log(ctx, entry); err != nil {
		logger.WithModule("audit").Warn("failed to record audit entry",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}

// auditFromContext fills the actor fields of an entry from the request session.
func auditFromContext(ctx context.Context, action, resource, result string, metadata map[string]any) AuditEntry {
	entry := AuditEntry{
		Action:   action,
		Resource: resource,
		Result:   result,
		Metadata: metadata,
	}
	if session, ok := authctx.FromContext(ctx); ok {
		id := session.ProfileID
		entry.ProfileID = &id
		entry.Email = session.Email
		entry.IPAddress = session.IPAddress
		entry.UserAgent = session.UserAgent
	}
	return entry
}
