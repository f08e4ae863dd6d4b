package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMockMic_StreamsSilence(t *testing.T) {
	cfg := DefaultMockMicConfig()
	cfg.BufferDuration = 5 * time.Millisecond
	mic := NewMockMic(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, mic.Start(ctx))
	defer mic.Close()

	select {
	case chunk := <-mic.Stream():
		require.NotEmpty(t, chunk.PCM)
		require.Equal(t, cfg.SampleRate, chunk.SampleRate)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for audio chunk")
	}
}

func TestMockMic_StopClosesStream(t *testing.T) {
	mic := NewMockMic(DefaultMockMicConfig(), nil)
	require.NoError(t, mic.Start(context.Background()))
	require.NoError(t, mic.Stop())

	_, ok := <-mic.Stream()
	require.False(t, ok)
}

func TestMockCamera_StreamsFrames(t *testing.T) {
	cfg := DefaultMockCameraConfig()
	cfg.Framerate = 50
	cam := NewMockCamera(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, cam.Start(ctx))
	defer cam.Close()

	select {
	case frame := <-cam.Stream():
		require.NotEmpty(t, frame.JPEG)
		// JPEG magic bytes.
		require.Equal(t, byte(0xFF), frame.JPEG[0])
		require.Equal(t, byte(0xD8), frame.JPEG[1])
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for frame")
	}
}

func TestMockCamera_DoubleCloseIsSafe(t *testing.T) {
	cam := NewMockCamera(DefaultMockCameraConfig(), nil)
	require.NoError(t, cam.Start(context.Background()))
	require.NoError(t, cam.Close())
	require.NoError(t, cam.Close())
}

func TestExecMic_StartRejectsEmptyCommand(t *testing.T) {
	cfg := DefaultExecMicConfig()
	cfg.Command = nil
	mic := NewExecMic(cfg, nil)

	err := mic.Start(context.Background())
	require.Error(t, err)
	require.False(t, mic.running)
}
