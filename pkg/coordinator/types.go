package coordinator

import "github.com/teslashibe/assistant-core/pkg/session"

// State is the coordinator's published top-level state, derived from
// (connectionState, isPlaying, isSpeaking) per the precedence in
// SPEC_FULL.md §4.5.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateListening
	StateSpeaking
	StateUserSpeaking
	StateError
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateListening:
		return "Listening"
	case StateSpeaking:
		return "Speaking"
	case StateUserSpeaking:
		return "UserSpeaking"
	case StateError:
		return "Error"
	default:
		return "Idle"
	}
}

// deriveState is the pure precedence function of SPEC_FULL.md §4.5:
// first match wins.
//
//  1. connectionState = Error(m)                                -> Error
//  2. connectionState in {Connecting, Initializing, Reconnecting} -> Connecting
//  3. isSpeaking                                                 -> UserSpeaking
//  4. isPlaying                                                  -> Speaking
//  5. connectionState = Connected                                -> Listening
//  6. otherwise                                                  -> Idle
func deriveState(conn session.ConnectionState, isPlaying, isSpeaking bool) State {
	switch {
	case conn.Kind == session.StateError:
		return StateError
	case conn.Kind == session.StateConnecting || conn.Kind == session.StateInitializing || conn.Kind == session.StateReconnecting:
		return StateConnecting
	case isSpeaking:
		return StateUserSpeaking
	case isPlaying:
		return StateSpeaking
	case conn.Kind == session.StateConnected || conn.Kind == session.StateStreaming:
		return StateListening
	default:
		return StateIdle
	}
}
