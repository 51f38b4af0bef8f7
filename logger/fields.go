package logger

// Field keys shared across packages so log queries stay stable.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldRunID      = "run_id"
	FieldChunkIndex = "chunk_index"
	FieldAttempt    = "attempt"
	FieldMode       = "mode"
	FieldStatus     = "status"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
)

// Fields builds a field map from alternating keys and values. Pairs whose
// key is not a string, and a trailing odd value, are dropped.
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}
