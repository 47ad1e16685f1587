// Package mocks provides mock implementations of audit loggers for testing.
package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	auditDomain "github.com/allisson/kagimori/internal/audit/domain"
)

// MockLogger is a mock implementation of service.Logger.
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Log(ctx context.Context, log *auditDomain.AuditLog) {
	m.Called(ctx, log)
}

// RecordingLogger keeps every event it receives. Safe for concurrent use.
type RecordingLogger struct {
	mu   sync.Mutex
	logs []*auditDomain.AuditLog
}

func (r *RecordingLogger) Log(_ context.Context, log *auditDomain.AuditLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
}

// Logs returns a snapshot of the recorded events.
func (r *RecordingLogger) Logs() []*auditDomain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*auditDomain.AuditLog(nil), r.logs...)
}

// Kinds returns the action kinds recorded, in order.
func (r *RecordingLogger) Kinds() []auditDomain.ActionKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]auditDomain.ActionKind, 0, len(r.logs))
	for _, l := range r.logs {
		kinds = append(kinds, l.Action.Kind())
	}
	return kinds
}
