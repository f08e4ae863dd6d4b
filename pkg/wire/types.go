// Package wire implements the tagged-union JSON wire protocol spoken with
// the remote generative model's live session endpoint.
//
// Both directions are modeled as a single outer object where exactly one
// variant field is set. Encoding validates the single-active-variant
// invariant; decoding accepts whichever variant arrived and ignores the
// rest, so unrecognized future variants do not break the client.
package wire

import "encoding/json"

// ClientMessage is the outer envelope for every client-to-server frame.
// Exactly one field must be set when encoding.
type ClientMessage struct {
	Setup         *Setup         `json:"setup,omitempty"`
	ClientContent *ClientContent `json:"clientContent,omitempty"`
	RealtimeInput *RealtimeInput `json:"realtimeInput,omitempty"`
	ToolResponse  *ToolResponse  `json:"toolResponse,omitempty"`
}

// Setup carries the session configuration sent as the first client frame.
type Setup struct {
	Model             string             `json:"model"`
	GenerationConfig  GenerationConfig   `json:"generation_config"`
	SystemInstruction *SystemInstruction `json:"system_instruction,omitempty"`
	RealtimeInputCfg  *RealtimeInputCfg  `json:"realtime_input_config,omitempty"`
	Tools             []ToolDeclaration  `json:"tools,omitempty"`
}

// GenerationConfig declares the desired response modality and voice.
type GenerationConfig struct {
	ResponseModalities []string     `json:"response_modalities"`
	SpeechConfig       *SpeechConfig `json:"speech_config,omitempty"`
}

// SpeechConfig names a prebuilt voice for audio responses.
type SpeechConfig struct {
	VoiceConfig VoiceConfig `json:"voice_config"`
}

// VoiceConfig wraps the prebuilt voice selector.
type VoiceConfig struct {
	PrebuiltVoiceConfig PrebuiltVoiceConfig `json:"prebuilt_voice_config"`
}

// PrebuiltVoiceConfig names a single prebuilt voice id.
type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voice_name"`
}

// SystemInstruction wraps the mode's system instruction text.
type SystemInstruction struct {
	Parts []Part `json:"parts"`
}

// RealtimeInputCfg disables server-side activity detection; the client
// always runs its own VAD and sends explicit activity_start/activity_end
// markers instead.
type RealtimeInputCfg struct {
	AutomaticActivityDetection AutomaticActivityDetection `json:"automatic_activity_detection"`
}

// AutomaticActivityDetection carries the disabled flag.
type AutomaticActivityDetection struct {
	Disabled bool `json:"disabled"`
}

// ToolDeclaration describes one callable tool for the model.
type ToolDeclaration struct {
	FunctionDeclarations []FunctionDeclaration `json:"function_declarations"`
}

// FunctionDeclaration is a single tool's name, description, and JSON schema.
type FunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ClientContent carries turn-structured content (used for text-only turns;
// audio/image media goes through RealtimeInput instead).
type ClientContent struct {
	Turns        []ContentTurn `json:"turns,omitempty"`
	TurnComplete bool          `json:"turn_complete"`
}

// ContentTurn is one role's contribution to the conversation.
type ContentTurn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is either a text part or an inline-data part (exactly one is set).
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

// InlineData is a base64 media body with a declared MIME type.
type InlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// RealtimeInput carries streamed media chunks and optional activity markers.
type RealtimeInput struct {
	MediaChunks   []MediaChunk `json:"media_chunks,omitempty"`
	ActivityStart *struct{}    `json:"activity_start,omitempty"`
	ActivityEnd   *struct{}    `json:"activity_end,omitempty"`
}

// MediaChunk is one base64-encoded frame of a declared MIME type.
type MediaChunk struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// ToolResponse returns the results of tool invocations to the model.
type ToolResponse struct {
	FunctionResponses []FunctionResponse `json:"function_responses"`
}

// FunctionResponse is the result of one tool call, matched by ID.
type FunctionResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// ServerMessage is the outer envelope for every server-to-client frame.
// Decode inspects whichever field unmarshaled non-nil.
type ServerMessage struct {
	SetupComplete           *SetupComplete           `json:"setupComplete,omitempty"`
	ServerContent           *ServerContent           `json:"serverContent,omitempty"`
	ToolCall                *ToolCall                `json:"toolCall,omitempty"`
	ToolCallCancellation    *ToolCallCancellation    `json:"toolCallCancellation,omitempty"`
	UsageMetadata           json.RawMessage          `json:"usageMetadata,omitempty"`
	GoAway                  json.RawMessage          `json:"goAway,omitempty"`
	SessionResumptionUpdate json.RawMessage          `json:"sessionResumptionUpdate,omitempty"`
	InputTranscription      *Transcription           `json:"inputTranscription,omitempty"`
	OutputTranscription     *Transcription           `json:"outputTranscription,omitempty"`
}

// SetupComplete acknowledges the setup handshake.
type SetupComplete struct {
	Model string `json:"model,omitempty"`
}

// ServerContent carries model output for the current turn.
type ServerContent struct {
	ModelTurn    *ModelTurn `json:"model_turn,omitempty"`
	TurnComplete bool       `json:"turn_complete,omitempty"`
	Interrupted  bool       `json:"interrupted,omitempty"`
}

// ModelTurn is the model's span of content for the current turn.
type ModelTurn struct {
	Parts []Part `json:"parts"`
}

// ToolCall is one or more function invocations requested by the model.
type ToolCall struct {
	FunctionCalls []FunctionCall `json:"function_calls"`
}

// FunctionCall is a single tool invocation request.
type FunctionCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolCallCancellation cancels one or more in-flight tool calls.
type ToolCallCancellation struct {
	IDs []string `json:"ids"`
}

// Transcription carries a transcript of either side of the conversation.
type Transcription struct {
	Text string `json:"text"`
}
