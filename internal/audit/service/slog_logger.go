package service

import (
	"context"
	"encoding/base64"
	"log/slog"

	auditDomain "github.com/allisson/kagimori/internal/audit/domain"
)

type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger returns a Logger that writes each event at info level under an
// "audit" attribute group.
func NewSlogLogger(logger *slog.Logger) Logger {
	return &slogLogger{logger: logger}
}

func (l *slogLogger) Log(ctx context.Context, log *auditDomain.AuditLog) {
	if log == nil || log.Action == nil {
		return
	}
	details := log.Action.Details()

	attrs := []any{
		slog.Time("timestamp", log.Timestamp),
		slog.String("event_id", log.EventID),
		slog.String("service", log.Service),
		slog.String("user", log.User),
		slog.String("action", string(log.Action.Kind())),
		slog.String("algorithm", details.Algorithm),
		slog.String("key_id", details.KeyID),
	}
	if details.Version > 0 {
		attrs = append(attrs, slog.Uint64("version", details.Version))
	}
	if details.DataKey != nil {
		attrs = append(attrs, slog.String("data_key", *details.DataKey))
	}
	if len(log.Signature) > 0 {
		attrs = append(attrs, slog.String("signature", base64.StdEncoding.EncodeToString(log.Signature)))
	}

	l.logger.InfoContext(ctx, "audit event", slog.Group("audit", attrs...))
}
