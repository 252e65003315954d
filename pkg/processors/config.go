package processors

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tambourinehq/tambourine/pkg/configutil"
	"github.com/tambourinehq/tambourine/pkg/frames"
	"github.com/tambourinehq/tambourine/pkg/logging"
	"github.com/tambourinehq/tambourine/pkg/pipeline"
	"github.com/tambourinehq/tambourine/pkg/prompt"
	"github.com/tambourinehq/tambourine/pkg/providers"
)

// Runtime configuration commands understood by the dispatcher. Any other
// message passes through unmodified.
const (
	CmdSetSTTProvider    = "set-stt-provider"
	CmdSetLLMProvider    = "set-llm-provider"
	CmdSetPromptSections = "set-prompt-sections"
	CmdSetSTTTimeout     = "set-stt-timeout"
)

// Setting tags echoed back to the client in acknowledgements.
const (
	settingSTTProvider    = "stt-provider"
	settingLLMProvider    = "llm-provider"
	settingPromptSections = "prompt-sections"
	settingSTTTimeout     = "stt-timeout"
)

const serverMessageLabel = "rtvi-ai"

// clientEnvelope is the nested shape: {"type":"client-message","data":{"t":...,"d":{...}}}.
type clientEnvelope struct {
	Type string `mapstructure:"type"`
	Data struct {
		T string         `mapstructure:"t"`
		D map[string]any `mapstructure:"d"`
	} `mapstructure:"data"`
}

// flatEnvelope is the direct shape: {"type":"set-stt-timeout","data":{...}}.
type flatEnvelope struct {
	Type string         `mapstructure:"type"`
	Data map[string]any `mapstructure:"data"`
}

// ConfigProcessor is the first stage of every session pipeline. It intercepts
// runtime configuration commands, applies them to the session's controllers,
// and answers each with exactly one acknowledgement frame. Frames it does not
// recognize flow through byte-for-byte.
type ConfigProcessor struct {
	sttCtl  *providers.Controller
	llmCtl  *providers.Controller
	prompts *prompt.Holder
	buffer  *TranscriptionBuffer
	logger  *slog.Logger
}

func NewConfigProcessor(sttCtl, llmCtl *providers.Controller, prompts *prompt.Holder, buffer *TranscriptionBuffer) *ConfigProcessor {
	return &ConfigProcessor{
		sttCtl:  sttCtl,
		llmCtl:  llmCtl,
		prompts: prompts,
		buffer:  buffer,
		logger:  logging.NewComponentLogger(slog.Default(), "config_dispatcher"),
	}
}

func (c *ConfigProcessor) Name() string { return "config_dispatcher" }

func (c *ConfigProcessor) Process(f frames.Frame) ([]frames.Frame, error) {
	switch f.Kind() {
	case frames.KindSystem:
		sf := f.(frames.SystemFrame)
		if sf.Name() == frames.SystemPipelineStart {
			c.sttCtl.OnStart()
			c.llmCtl.OnStart()
		}
		return []frames.Frame{f}, nil
	case frames.KindMessage:
		mf := f.(frames.MessageFrame)
		cmd, args, ok := extractCommand(mf.Payload())
		if !ok {
			return []frames.Frame{f}, nil
		}
		ack, handled := c.dispatch(mf, cmd, args)
		if !handled {
			return []frames.Frame{f}, nil
		}
		return []frames.Frame{ack}, nil
	default:
		return []frames.Frame{f}, nil
	}
}

// extractCommand unwraps either envelope shape. The nested client-message
// form is tried first; extra envelope fields like label and id are ignored.
// Anything else with a type string is treated as the flat form and left to
// dispatch to decide whether it is a known command.
func extractCommand(payload map[string]any) (string, map[string]any, bool) {
	var nested clientEnvelope
	if err := configutil.DecodePayload(payload, &nested); err == nil &&
		nested.Type == "client-message" && nested.Data.T != "" {
		return nested.Data.T, nested.Data.D, true
	}
	var flat flatEnvelope
	if err := configutil.DecodePayload(payload, &flat); err != nil || flat.Type == "" {
		return "", nil, false
	}
	return flat.Type, flat.Data, true
}

func (c *ConfigProcessor) dispatch(mf frames.MessageFrame, cmd string, args map[string]any) (frames.Frame, bool) {
	var ack frames.Frame
	switch cmd {
	case CmdSetSTTProvider:
		ack = c.handleProvider(mf, c.sttCtl, settingSTTProvider, args)
	case CmdSetLLMProvider:
		ack = c.handleProvider(mf, c.llmCtl, settingLLMProvider, args)
	case CmdSetPromptSections:
		ack = c.handlePromptSections(mf, args)
	case CmdSetSTTTimeout:
		ack = c.handleTimeout(mf, args)
	default:
		return nil, false
	}
	return ack, true
}

func (c *ConfigProcessor) handleProvider(mf frames.MessageFrame, ctl *providers.Controller, setting string, args map[string]any) frames.Frame {
	var req struct {
		Provider string `mapstructure:"provider"`
	}
	if err := configutil.DecodePayload(args, &req); err != nil || strings.TrimSpace(req.Provider) == "" {
		return c.ackError(mf, setting, "Provider value is required")
	}
	id, err := ctl.Switch(req.Provider)
	if err != nil {
		c.logger.Warn("provider_switch_rejected",
			slog.String("setting", setting),
			slog.String("requested", req.Provider),
			slog.String("error", err.Error()))
		return c.ackError(mf, setting, err.Error())
	}
	c.logger.Info("provider_switched",
		slog.String("setting", setting),
		slog.String("provider", id))
	return c.ackSuccess(mf, setting, req.Provider)
}

func (c *ConfigProcessor) handlePromptSections(mf frames.MessageFrame, args map[string]any) frames.Frame {
	// sections arrive either nested under a "sections" key or as the args
	// object itself; both shapes are in the wild
	if v, ok := args["sections"]; ok {
		nested, _ := v.(map[string]any)
		args = nested
	}
	if len(args) == 0 {
		c.prompts.Reset()
		c.logger.Info("prompt_sections_reset")
		return c.ackSuccess(mf, settingPromptSections, "default")
	}
	var sections prompt.Sections
	if err := configutil.DecodePayload(args, &sections); err != nil {
		return c.ackError(mf, settingPromptSections, fmt.Sprintf("Invalid prompt sections: %s", err.Error()))
	}
	if err := c.prompts.Set(sections); err != nil {
		return c.ackError(mf, settingPromptSections, err.Error())
	}
	c.logger.Info("prompt_sections_updated")
	return c.ackSuccess(mf, settingPromptSections, "custom")
}

func (c *ConfigProcessor) handleTimeout(mf frames.MessageFrame, args map[string]any) frames.Frame {
	var req struct {
		TimeoutSeconds *float64 `mapstructure:"timeout_seconds"`
	}
	if err := configutil.DecodePayload(args, &req); err != nil || req.TimeoutSeconds == nil {
		return c.ackError(mf, settingSTTTimeout, "Timeout value is required")
	}
	if err := c.buffer.SetTimeoutSeconds(*req.TimeoutSeconds); err != nil {
		return c.ackError(mf, settingSTTTimeout, "Timeout must be between 0.1 and 10.0 seconds")
	}
	c.logger.Info("stt_timeout_updated",
		slog.Float64("timeout_seconds", *req.TimeoutSeconds))
	return c.ackSuccess(mf, settingSTTTimeout, *req.TimeoutSeconds)
}

func (c *ConfigProcessor) ackSuccess(mf frames.MessageFrame, setting string, value any) frames.Frame {
	return c.ack(mf, setting, map[string]any{
		"type":    "config-updated",
		"setting": setting,
		"value":   value,
		"success": true,
	})
}

func (c *ConfigProcessor) ackError(mf frames.MessageFrame, setting, message string) frames.Frame {
	return c.ack(mf, setting, map[string]any{
		"type":    "config-error",
		"setting": setting,
		"error":   message,
	})
}

func (c *ConfigProcessor) ack(mf frames.MessageFrame, setting string, data map[string]any) frames.Frame {
	payload := map[string]any{
		"label": serverMessageLabel,
		"type":  "server-message",
		"data":  data,
	}
	inMeta := mf.Meta()
	meta := map[string]string{
		frames.MetaSetting:   setting,
		frames.MetaSource:    "config_dispatcher",
		frames.MetaSessionID: inMeta[frames.MetaSessionID],
	}
	return frames.NewMessageFrame(inMeta[frames.MetaStreamID], time.Now().UnixNano(), payload, nil, meta)
}

var _ pipeline.FrameProcessor = (*ConfigProcessor)(nil)
