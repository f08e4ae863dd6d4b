package wire

import (
	"encoding/json"
	"fmt"
)

// EncodeClient validates that exactly one variant is set on msg and returns
// its JSON encoding. The codec guarantees one JSON document per call.
func EncodeClient(msg ClientMessage) ([]byte, error) {
	if err := validateClientVariant(msg); err != nil {
		return nil, err
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return b, nil
}

func validateClientVariant(msg ClientMessage) error {
	set := 0
	if msg.Setup != nil {
		set++
	}
	if msg.ClientContent != nil {
		set++
	}
	if msg.RealtimeInput != nil {
		set++
	}
	if msg.ToolResponse != nil {
		set++
	}
	switch {
	case set == 0:
		return ErrNoVariant
	case set > 1:
		return ErrMultipleVariants
	default:
		return nil
	}
}

// DecodeServer parses a single incoming frame into a ServerMessage. It
// accepts any single-present variant and does not require exactly one to be
// set, since unknown future fields should not break decoding; unrecognized
// content is simply not present in any known field.
func DecodeServer(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerMessage{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if !hasKnownVariant(msg) {
		return ServerMessage{}, ErrUnexpectedVariant
	}
	return msg, nil
}

func hasKnownVariant(msg ServerMessage) bool {
	return msg.SetupComplete != nil ||
		msg.ServerContent != nil ||
		msg.ToolCall != nil ||
		msg.ToolCallCancellation != nil ||
		msg.UsageMetadata != nil ||
		msg.GoAway != nil ||
		msg.SessionResumptionUpdate != nil ||
		msg.InputTranscription != nil ||
		msg.OutputTranscription != nil
}

// AudioMIMEType is the wire MIME type for outgoing PCM16 audio chunks.
const AudioMIMEType = "audio/pcm"

// ImageMIMEType is the wire MIME type for still-image capture frames.
const ImageMIMEType = "image/jpeg"

// IsAudioMIME reports whether mime names an audio payload. Model audio
// responses use whatever audio/* subtype the model chooses, not necessarily
// AudioMIMEType exactly, so this checks only the top-level type.
func IsAudioMIME(mime string) bool {
	return len(mime) >= 6 && mime[:6] == "audio/"
}
