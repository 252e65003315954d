package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	// Configuration command failures, all recovered locally by the
	// dispatcher and turned into config-error acknowledgements.
	ReasonMissingArgument     ReasonCode = "missing_argument"
	ReasonUnknownProvider     ReasonCode = "unknown_provider"
	ReasonProviderUnavailable ReasonCode = "provider_unavailable"
	ReasonPipelineNotReady    ReasonCode = "pipeline_not_ready"
	ReasonOutOfRange          ReasonCode = "out_of_range"
	ReasonComposeFailed       ReasonCode = "compose_failed"

	ReasonSTTConnect    ReasonCode = "stt_connect"
	ReasonSTTSend       ReasonCode = "stt_send"
	ReasonLLMRewrite    ReasonCode = "llm_rewrite"
	ReasonTransportSend ReasonCode = "transport_send"
)
