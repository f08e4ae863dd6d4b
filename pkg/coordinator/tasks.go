package coordinator

import (
	"context"

	"github.com/teslashibe/assistant-core/pkg/capture"
	"github.com/teslashibe/assistant-core/pkg/session"
	"github.com/teslashibe/assistant-core/pkg/vad"
)

// cameraForwarder consumes the frame stream; for each frame calls
// session.send_media(image=frame), per SPEC_FULL.md §4.5 task 1.
func (co *Coordinator) cameraForwarder(ctx context.Context) {
	defer co.wg.Done()

	stream := co.deps.Camera.Stream()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-stream:
			if !ok {
				return
			}
			if err := co.deps.Session.SendMedia(nil, frame.JPEG); err != nil {
				co.logger.Warn("send_media(image) failed", "error", err)
				continue
			}
			if co.deps.Metrics != nil {
				co.deps.Metrics.IncrementFramesSent()
			}
		}
	}
}

// audioForwarder consumes the mic stream; for each chunk, pushes it into
// VAD first and only then forwards it to the session, per SPEC_FULL.md
// §4.5 task 2 / §5's AudioForwarder ordering guarantee.
func (co *Coordinator) audioForwarder(ctx context.Context) {
	defer co.wg.Done()

	stream := co.deps.Mic.Stream()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-stream:
			if !ok {
				return
			}
			co.processMicChunk(chunk)
		}
	}
}

func (co *Coordinator) processMicChunk(chunk capture.AudioChunk) {
	if co.deps.Metrics != nil {
		co.deps.Metrics.MarkCaptureStart()
		co.deps.Metrics.IncrementAudioIn()
		co.deps.Metrics.MarkVADStart()
	}

	events, err := co.deps.VAD.ProcessChunk(chunk.PCM)
	if co.deps.Metrics != nil {
		co.deps.Metrics.MarkVADEnd()
	}
	if err != nil {
		co.logger.Warn("vad process_chunk failed", "error", err)
	}

	for _, ev := range events {
		select {
		case co.vadEventCh <- ev:
		default:
			co.logger.Warn("vad event channel full, dropping event", "kind", ev.Kind.String())
		}
	}

	if co.deps.Metrics != nil {
		co.deps.Metrics.MarkCaptureEnd()
	}

	if err := co.deps.Session.SendMedia(chunk.PCM, nil); err != nil {
		co.logger.Warn("send_media(audio) failed", "error", err)
	}
}

// responseHandler consumes model audio from the session and forwards it
// to player.enqueue, per SPEC_FULL.md §4.5 task 3.
func (co *Coordinator) responseHandler(ctx context.Context) {
	defer co.wg.Done()

	pcm := co.deps.Session.PCM()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-pcm:
			if !ok {
				return
			}
			if co.deps.Metrics != nil {
				co.deps.Metrics.MarkRoundTripEnd()
				co.deps.Metrics.MarkPlaybackStart()
				co.deps.Metrics.IncrementAudioOut()
			}
			if err := co.deps.Player.Enqueue(ctx, chunk); err != nil {
				co.logger.Warn("player enqueue failed", "error", err)
			}
		}
	}
}

// eventHandler consumes the session's event stream and finalizes the
// current turn's metrics on EventTurnComplete - the only place
// Metrics.MarkResponseDone is called, archiving the turn into history and
// firing the update callback.
func (co *Coordinator) eventHandler(ctx context.Context) {
	defer co.wg.Done()

	events := co.deps.Session.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == session.EventTurnComplete && co.deps.Metrics != nil {
				co.deps.Metrics.MarkResponseDone()
			}
		}
	}
}

// vadHandler reacts to SpeechStart/SpeechEnd: on SpeechStart it stops any
// in-flight playback (barge-in) and signals the session; on SpeechEnd it
// closes the activity window, per SPEC_FULL.md §4.5 task 4.
func (co *Coordinator) vadHandler(ctx context.Context) {
	defer co.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-co.vadEventCh:
			if !ok {
				return
			}
			co.handleVADEvent(ctx, ev)
		}
	}
}

func (co *Coordinator) handleVADEvent(ctx context.Context, ev vad.Event) {
	switch ev.Kind {
	case vad.EventSpeechStart:
		co.setSpeaking(true)

		if co.deps.Player.IsPlaying() {
			_ = co.deps.Player.Pause(ctx)
			_ = co.deps.Player.Flush(ctx)
		}
		_ = co.deps.Session.SendActivityStart()
		co.deps.Session.SignalInterruption()

	case vad.EventSpeechEnd:
		co.setSpeaking(false)
		_ = co.deps.Session.SendActivityEnd()
		if co.deps.Metrics != nil {
			co.deps.Metrics.MarkRoundTripStart()
		}
	}
}

func (co *Coordinator) setSpeaking(speaking bool) {
	co.mu.Lock()
	co.isSpeaking = speaking
	co.mu.Unlock()
	co.signalRecompute()
}

// stateMapper combines (connectionState, isPlaying, isSpeaking) and
// publishes the derived top-level state, per SPEC_FULL.md §4.5 task 5.
func (co *Coordinator) stateMapper(ctx context.Context) {
	defer co.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-co.recomputeCh:
			co.mu.Lock()
			speaking := co.isSpeaking
			co.mu.Unlock()

			s := deriveState(co.deps.Session.State(), co.deps.Player.IsPlaying(), speaking)
			co.publish(s)
		}
	}
}
