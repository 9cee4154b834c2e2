package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches the auth middleware context keys)
	FieldIdentity = "identity"
	FieldNickname = "nickname"

	// Domain
	FieldAssetKey   = "asset_key"
	FieldAssetCount = "asset_count"
	FieldBucket     = "bucket"
	FieldTable      = "table"
	FieldSizeBytes  = "size_bytes"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
