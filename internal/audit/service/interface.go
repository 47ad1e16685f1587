// Package service provides the audit log sinks the encryption layer writes to.
package service

import (
	"context"

	auditDomain "github.com/allisson/kagimori/internal/audit/domain"
)

// Logger records audit events. Implementations must not fail the audited operation:
// sink errors are handled (logged, dropped) internally.
type Logger interface {
	Log(ctx context.Context, log *auditDomain.AuditLog)
}
