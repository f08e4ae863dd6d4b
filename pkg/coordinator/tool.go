package coordinator

// Tool is an AI-invocable function the coordinator dispatches tool calls
// to, the same shape as pkg/eva.Tool / pkg/voice.Tool: a name the model
// references, a declared parameter schema, and a synchronous handler.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     func(args map[string]any) (string, error)
}
