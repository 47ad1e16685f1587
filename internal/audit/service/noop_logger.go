package service

import (
	"context"

	auditDomain "github.com/allisson/kagimori/internal/audit/domain"
)

type noopLogger struct{}

// NewNoopLogger returns a Logger that discards every event.
func NewNoopLogger() Logger {
	return noopLogger{}
}

func (noopLogger) Log(context.Context, *auditDomain.AuditLog) {}
