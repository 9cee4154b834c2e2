package audit

import (
	"context"

	"github.com/araozmd/ancdotario-user-service/pkg/log"
)

// Audit actions for the user service. Reads are not audited.
const (
	ActionUserCreate   = "user.create"
	ActionUserDelete   = "user.delete"
	ActionBatchDelete  = "user.batch_delete"
	ActionPhotoAttach  = "photo.attach"
	ActionPhotoDetach  = "photo.detach"
	ActionPhotoRefresh = "photo.refresh"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, identity string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldIdentity, identity).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action string, identity string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldIdentity, identity).
		Str(FieldDetail, detail).
		Msg(msg)
}
