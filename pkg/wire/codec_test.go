package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeClient_ExactlyOneVariant(t *testing.T) {
	t.Run("setup encodes", func(t *testing.T) {
		msg := BuildSetup("models/m", "Puck", "be terse")
		b, err := EncodeClient(msg)
		require.NoError(t, err)
		require.Contains(t, string(b), `"setup"`)
		require.Contains(t, string(b), `"response_modalities":["AUDIO"]`)
		require.Contains(t, string(b), `"automatic_activity_detection":{"disabled":true}`)
	})

	t.Run("no variant rejected", func(t *testing.T) {
		_, err := EncodeClient(ClientMessage{})
		require.ErrorIs(t, err, ErrNoVariant)
	})

	t.Run("multiple variants rejected", func(t *testing.T) {
		msg := ClientMessage{
			Setup:         &Setup{Model: "m"},
			ClientContent: &ClientContent{},
		}
		_, err := EncodeClient(msg)
		require.ErrorIs(t, err, ErrMultipleVariants)
	})
}

func TestBuildMedia(t *testing.T) {
	t.Run("empty input is a no-op", func(t *testing.T) {
		_, ok := BuildMedia(nil, AudioMIMEType, nil, ImageMIMEType)
		require.False(t, ok)
	})

	t.Run("audio only", func(t *testing.T) {
		msg, ok := BuildMedia([]byte{1, 2, 3}, AudioMIMEType, nil, ImageMIMEType)
		require.True(t, ok)
		require.Len(t, msg.RealtimeInput.MediaChunks, 1)
		require.Equal(t, AudioMIMEType, msg.RealtimeInput.MediaChunks[0].MIMEType)
	})

	t.Run("audio and image", func(t *testing.T) {
		msg, ok := BuildMedia([]byte{1}, AudioMIMEType, []byte{2}, ImageMIMEType)
		require.True(t, ok)
		require.Len(t, msg.RealtimeInput.MediaChunks, 2)
	})
}

func TestDecodeServer(t *testing.T) {
	t.Run("setup complete", func(t *testing.T) {
		msg, err := DecodeServer([]byte(`{"setupComplete":{"model":"m"}}`))
		require.NoError(t, err)
		require.NotNil(t, msg.SetupComplete)
		require.Equal(t, "m", msg.SetupComplete.Model)
	})

	t.Run("audio response streamed", func(t *testing.T) {
		raw := `{"serverContent":{"model_turn":{"parts":[{"inline_data":{"mime_type":"audio/pcm","data":"AAECAwQFBgc="}}]}}}`
		msg, err := DecodeServer([]byte(raw))
		require.NoError(t, err)
		require.NotNil(t, msg.ServerContent)
		require.NotNil(t, msg.ServerContent.ModelTurn)
		require.Len(t, msg.ServerContent.ModelTurn.Parts, 1)

		part := msg.ServerContent.ModelTurn.Parts[0]
		require.True(t, IsAudioMIME(part.InlineData.MIMEType))

		pcm, err := DecodeBase64(part.InlineData.Data)
		require.NoError(t, err)
		require.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7}, pcm)
	})

	t.Run("turn complete", func(t *testing.T) {
		msg, err := DecodeServer([]byte(`{"serverContent":{"turn_complete":true}}`))
		require.NoError(t, err)
		require.True(t, msg.ServerContent.TurnComplete)
	})

	t.Run("interrupted", func(t *testing.T) {
		msg, err := DecodeServer([]byte(`{"serverContent":{"interrupted":true}}`))
		require.NoError(t, err)
		require.True(t, msg.ServerContent.Interrupted)
	})

	t.Run("tool call", func(t *testing.T) {
		raw := `{"toolCall":{"function_calls":[{"id":"1","name":"get_time","args":{}}]}}`
		msg, err := DecodeServer([]byte(raw))
		require.NoError(t, err)
		require.NotNil(t, msg.ToolCall)
		require.Len(t, msg.ToolCall.FunctionCalls, 1)
		require.Equal(t, "get_time", msg.ToolCall.FunctionCalls[0].Name)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := DecodeServer([]byte(`not json`))
		require.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("unknown fields are ignored, known ones preserved", func(t *testing.T) {
		raw := `{"serverContent":{"turn_complete":true,"futureField":"x"},"somethingNew":true}`
		msg, err := DecodeServer([]byte(raw))
		require.NoError(t, err)
		require.True(t, msg.ServerContent.TurnComplete)
	})

	t.Run("no recognized variant", func(t *testing.T) {
		_, err := DecodeServer([]byte(`{"somethingUnknown":true}`))
		require.ErrorIs(t, err, ErrUnexpectedVariant)
	})
}

func TestRoundTrip(t *testing.T) {
	t.Run("tool response round trip", func(t *testing.T) {
		msg := BuildToolResponse("1", "get_time", map[string]any{"result": "noon"})
		b, err := EncodeClient(msg)
		require.NoError(t, err)
		require.Contains(t, string(b), `"toolResponse"`)
		require.Contains(t, string(b), `"id":"1"`)

		var decoded ClientMessage
		require.NoError(t, json.Unmarshal(b, &decoded))
		require.Equal(t, msg, decoded)
	})

	t.Run("activity markers", func(t *testing.T) {
		start := BuildActivityStart()
		b, err := EncodeClient(start)
		require.NoError(t, err)
		require.Contains(t, string(b), `"activity_start":{}`)

		var decoded ClientMessage
		require.NoError(t, json.Unmarshal(b, &decoded))
		require.Equal(t, start, decoded)

		b, err = EncodeClient(BuildActivityEnd())
		require.NoError(t, err)
		require.Contains(t, string(b), `"activity_end":{}`)
	})
}
