package wire

// BuildSetup constructs the setup frame sent as the first outgoing message
// of a physical connection.
func BuildSetup(model, voice, systemInstruction string) ClientMessage {
	return ClientMessage{
		Setup: &Setup{
			Model: model,
			GenerationConfig: GenerationConfig{
				ResponseModalities: []string{"AUDIO"},
				SpeechConfig: &SpeechConfig{
					VoiceConfig: VoiceConfig{
						PrebuiltVoiceConfig: PrebuiltVoiceConfig{VoiceName: voice},
					},
				},
			},
			SystemInstruction: &SystemInstruction{
				Parts: []Part{{Text: systemInstruction}},
			},
			RealtimeInputCfg: &RealtimeInputCfg{
				AutomaticActivityDetection: AutomaticActivityDetection{Disabled: true},
			},
		},
	}
}

// BuildMedia constructs a realtimeInput frame carrying the given media
// chunks. Returns false if there is nothing to send (empty input is a
// no-op per the session contract).
func BuildMedia(audio []byte, audioMIME string, image []byte, imageMIME string) (ClientMessage, bool) {
	var chunks []MediaChunk
	if len(audio) > 0 {
		chunks = append(chunks, MediaChunk{MIMEType: audioMIME, Data: encodeBase64(audio)})
	}
	if len(image) > 0 {
		chunks = append(chunks, MediaChunk{MIMEType: imageMIME, Data: encodeBase64(image)})
	}
	if len(chunks) == 0 {
		return ClientMessage{}, false
	}
	return ClientMessage{RealtimeInput: &RealtimeInput{MediaChunks: chunks}}, true
}

// BuildActivityStart constructs the activity_start marker frame.
func BuildActivityStart() ClientMessage {
	return ClientMessage{RealtimeInput: &RealtimeInput{ActivityStart: &struct{}{}}}
}

// BuildActivityEnd constructs the activity_end marker frame.
func BuildActivityEnd() ClientMessage {
	return ClientMessage{RealtimeInput: &RealtimeInput{ActivityEnd: &struct{}{}}}
}

// BuildToolResponse constructs the toolResponse frame returning a single
// tool's result to the model.
func BuildToolResponse(callID, name string, result map[string]any) ClientMessage {
	return ClientMessage{
		ToolResponse: &ToolResponse{
			FunctionResponses: []FunctionResponse{
				{ID: callID, Name: name, Response: result},
			},
		},
	}
}
