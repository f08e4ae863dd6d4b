package coordinator

// Instruction text is opaque to the protocol per SPEC_FULL.md §4.6; the
// core treats it as a parameter selected solely by Mode.
const (
	socialInstruction = "You are a friendly companion having a casual, " +
		"open-ended conversation. Be warm, curious, and brief."
	mirrorInstruction = "You are describing what you see through the " +
		"camera back to the user in real time, as a mirror would. Narrate " +
		"concisely and only when something changes."
	sceneInstruction = "You are narrating the surrounding scene for " +
		"someone who cannot see it. Describe notable objects, people, and " +
		"changes, prioritizing safety-relevant details."
)

// instructionFor returns the system instruction text for a mode. Total
// over Mode's enumeration.
func instructionFor(mode Mode) string {
	switch mode {
	case ModeMirror:
		return mirrorInstruction
	case ModeScene:
		return sceneInstruction
	default:
		return socialInstruction
	}
}
