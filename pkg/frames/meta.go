package frames

// Common meta keys attached to frames as they move through a session.
const (
	MetaStreamID   = "stream_id"
	MetaSessionID  = "session_id"
	MetaTraceID    = "trace_id"
	MetaSource     = "source"
	MetaProvider   = "provider"
	MetaGeneration = "generation"
	MetaSetting    = "setting"
)
