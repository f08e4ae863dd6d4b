// Package vad runs a recurrent speech-probability model over PCM audio and
// emits SpeechStart/SpeechEnd events with stable hysteresis.
package vad

import (
	"log/slog"
	"os"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// ensureEnvironment initializes the ONNX Runtime environment exactly once
// per process, the way nupi's silero engine guards initialization.
func ensureEnvironment() error {
	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// EventKind identifies a speech-boundary event.
type EventKind int

const (
	EventSpeechStart EventKind = iota
	EventSpeechEnd
)

func (k EventKind) String() string {
	if k == EventSpeechStart {
		return "SpeechStart"
	}
	return "SpeechEnd"
}

// Event is a single speech-boundary event.
type Event struct {
	Kind EventKind
	At   time.Time
}

// Engine holds the recurrent model's hidden state and hysteresis timers. Hidden
// state is owned exclusively by the Engine; no external caller may read or
// mutate it directly.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	session *ort.AdvancedSession

	inputTensor *ort.Tensor[float32]
	hTensor     *ort.Tensor[float32]
	cTensor     *ort.Tensor[float32]
	srTensor    *ort.Tensor[int64]
	probTensor  *ort.Tensor[float32]
	hOutTensor  *ort.Tensor[float32]
	cOutTensor  *ort.Tensor[float32]

	pcmBuf []float32

	active          bool
	speechStart     time.Time
	silenceOnset    time.Time
	silenceOnsetSet bool
	lastProbability float64
}

// New loads the model file and allocates the inference session. Failure
// here is an InitError, fatal to the whole core per SPEC_FULL.md §4.3/§7.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &InitError{Cause: err}
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "vad")

	if err := ensureEnvironment(); err != nil {
		return nil, &InitError{Cause: err}
	}

	modelData, err := os.ReadFile(cfg.ModelPath)
	if err != nil {
		return nil, &InitError{Cause: err}
	}

	inputShape := ort.NewShape(1, windowSize)
	stateShape := ort.NewShape(tensorLayers, 1, tensorUnits)
	srShape := ort.NewShape(1)
	probShape := ort.NewShape(1, 1)

	input, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, &InitError{Cause: err}
	}
	h, err := ort.NewEmptyTensor[float32](stateShape)
	if err != nil {
		input.Destroy()
		return nil, &InitError{Cause: err}
	}
	c, err := ort.NewEmptyTensor[float32](stateShape)
	if err != nil {
		input.Destroy()
		h.Destroy()
		return nil, &InitError{Cause: err}
	}
	sr, err := ort.NewTensor(srShape, []int64{cfg.SampleRate})
	if err != nil {
		input.Destroy()
		h.Destroy()
		c.Destroy()
		return nil, &InitError{Cause: err}
	}
	prob, err := ort.NewEmptyTensor[float32](probShape)
	if err != nil {
		input.Destroy()
		h.Destroy()
		c.Destroy()
		sr.Destroy()
		return nil, &InitError{Cause: err}
	}
	hOut, err := ort.NewEmptyTensor[float32](stateShape)
	if err != nil {
		input.Destroy()
		h.Destroy()
		c.Destroy()
		sr.Destroy()
		prob.Destroy()
		return nil, &InitError{Cause: err}
	}
	cOut, err := ort.NewEmptyTensor[float32](stateShape)
	if err != nil {
		input.Destroy()
		h.Destroy()
		c.Destroy()
		sr.Destroy()
		prob.Destroy()
		hOut.Destroy()
		return nil, &InitError{Cause: err}
	}

	session, err := ort.NewAdvancedSessionWithONNXData(
		modelData,
		[]string{"input", "h", "c", "sr"},
		[]string{"output", "hn", "cn"},
		[]ort.ArbitraryTensor{input, h, c, sr},
		[]ort.ArbitraryTensor{prob, hOut, cOut},
		nil,
	)
	if err != nil {
		input.Destroy()
		h.Destroy()
		c.Destroy()
		sr.Destroy()
		prob.Destroy()
		hOut.Destroy()
		cOut.Destroy()
		return nil, &InitError{Cause: err}
	}

	return &Engine{
		cfg:         cfg,
		logger:      logger,
		session:     session,
		inputTensor: input,
		hTensor:     h,
		cTensor:     c,
		srTensor:    sr,
		probTensor:  prob,
		hOutTensor:  hOut,
		cOutTensor:  cOut,
	}, nil
}

// pcm16ToFloat32 converts little-endian signed 16-bit samples to floats by
// dividing by 32768, per SPEC_FULL.md §4.3.
func pcm16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		out[i] = float32(s) / 32768.0
	}
	return out
}

// ProcessChunk splits pcm into non-overlapping windowSize windows, runs
// inference on each, and returns any hysteresis events produced. Remainder
// samples that do not fill a full window are kept and prepended to the
// next call's audio, so they add at most one window of latency.
func (e *Engine) ProcessChunk(pcm []byte) ([]Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	e.pcmBuf = append(e.pcmBuf, pcm16ToFloat32(pcm)...)

	var events []Event
	for len(e.pcmBuf) >= windowSize {
		window := e.pcmBuf[:windowSize]
		e.pcmBuf = e.pcmBuf[windowSize:]

		prob, err := e.infer(window)
		if err != nil {
			e.logger.Warn("vad inference failed, treating chunk as silence", "error", err)
			prob = 0
		}
		e.lastProbability = prob
		events = append(events, e.applyHysteresis(prob, time.Now())...)
	}

	return events, nil
}

func (e *Engine) infer(window []float32) (float64, error) {
	copy(e.inputTensor.GetData(), window)

	if err := e.session.Run(); err != nil {
		return 0, &InferenceError{Cause: err}
	}

	prob := float64(e.probTensor.GetData()[0])

	copy(e.hTensor.GetData(), e.hOutTensor.GetData())
	copy(e.cTensor.GetData(), e.cOutTensor.GetData())

	return prob, nil
}

// applyHysteresis implements the dual-threshold transitions of
// SPEC_FULL.md §4.3. Must be called with mu held.
func (e *Engine) applyHysteresis(prob float64, now time.Time) []Event {
	var events []Event

	switch {
	case !e.active && prob >= e.cfg.SpeechThreshold:
		e.active = true
		e.speechStart = now
		e.silenceOnsetSet = false
		events = append(events, Event{Kind: EventSpeechStart, At: now})

	case e.active && prob < e.cfg.SilenceThreshold:
		if !e.silenceOnsetSet {
			e.silenceOnset = now
			e.silenceOnsetSet = true
		}
		if now.Sub(e.silenceOnset) >= e.cfg.MinSilenceDuration &&
			now.Sub(e.speechStart) >= e.cfg.MinSpeechDuration {
			e.active = false
			e.silenceOnsetSet = false
			events = append(events, Event{Kind: EventSpeechEnd, At: now})
		}

	case e.active && prob >= e.cfg.SilenceThreshold:
		e.silenceOnsetSet = false
	}

	return events
}

// LastProbability returns the most recently computed speech probability,
// for the speechProbability observable.
func (e *Engine) LastProbability() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastProbability
}

// Active reports whether the engine currently considers speech active.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func zeroFloat32(data []float32) {
	for i := range data {
		data[i] = 0
	}
}

// Reset zeroes h and c, clears all timers, and forces inactive. Atomic with
// respect to ProcessChunk.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	zeroFloat32(e.hTensor.GetData())
	zeroFloat32(e.cTensor.GetData())
	e.pcmBuf = e.pcmBuf[:0]
	e.active = false
	e.silenceOnsetSet = false
	e.speechStart = time.Time{}
	e.silenceOnset = time.Time{}
	return nil
}

// Close drops the inference session. Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if e.session != nil {
		e.session.Destroy()
	}
	for _, t := range []interface{ Destroy() }{
		e.inputTensor, e.hTensor, e.cTensor, e.srTensor, e.probTensor, e.hOutTensor, e.cOutTensor,
	} {
		t.Destroy()
	}
	return nil
}
