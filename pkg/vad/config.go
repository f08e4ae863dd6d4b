package vad

import "time"

// Config holds the tunable hysteresis and model parameters for an Engine.
// Fluent value-receiver options, the way pkg/voice/config.go configures the
// provider-agnostic voice pipeline.
type Config struct {
	// ModelPath is the path to the ONNX model file. Required.
	ModelPath string

	// SpeechThreshold is the upper hysteresis bound (SPEECH).
	SpeechThreshold float64

	// SilenceThreshold is the lower hysteresis bound (SILENCE).
	SilenceThreshold float64

	// MinSpeechDuration is the minimum active duration before SpeechEnd
	// may fire (MIN_SPEECH).
	MinSpeechDuration time.Duration

	// MinSilenceDuration is the minimum trailing silence before SpeechEnd
	// fires (MIN_SILENCE).
	MinSilenceDuration time.Duration

	// SampleRate is the fixed sample-rate scalar fed to the model.
	SampleRate int64
}

// DefaultConfig returns a Config with the spec's documented hysteresis
// defaults.
func DefaultConfig() Config {
	return Config{
		SpeechThreshold:     0.5,
		SilenceThreshold:    0.35,
		MinSpeechDuration:   250 * time.Millisecond,
		MinSilenceDuration:  100 * time.Millisecond,
		SampleRate:          16000,
	}
}

// WithModelPath returns a copy with the model path set.
func (c Config) WithModelPath(path string) Config {
	c.ModelPath = path
	return c
}

// WithThresholds returns a copy with the hysteresis thresholds set.
func (c Config) WithThresholds(speech, silence float64) Config {
	c.SpeechThreshold = speech
	c.SilenceThreshold = silence
	return c
}

// WithDurations returns a copy with the minimum speech/silence durations set.
func (c Config) WithDurations(minSpeech, minSilence time.Duration) Config {
	c.MinSpeechDuration = minSpeech
	c.MinSilenceDuration = minSilence
	return c
}

// Validate checks the configuration for errors that would be an InitError
// at startup.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errConfigMissingModelPath
	}
	if c.SpeechThreshold <= c.SilenceThreshold {
		return errConfigThresholdOrder
	}
	if c.SampleRate <= 0 {
		return errConfigSampleRate
	}
	return nil
}

// windowSize is the fixed number of samples consumed per inference call
// (~32ms at 16kHz), per SPEC_FULL.md §4.3.
const windowSize = 512

// tensorUnits is the hidden state width per layer.
const tensorUnits = 64

// tensorLayers is the number of recurrent layers.
const tensorLayers = 2
