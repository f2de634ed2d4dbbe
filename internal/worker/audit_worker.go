package worker

import (
	"github.com/spec-kit/user-directory/internal/service"
)

// StartAuditWorker registers the mutation audit and cache invalidation handlers.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
