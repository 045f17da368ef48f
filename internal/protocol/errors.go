package protocol

const (
	// Input validation.
	ErrBadRequest = "E_BAD_REQUEST"
	ErrBadSeed    = "E_BAD_SEED"

	// Lookup/state.
	ErrAgentNotFound = "E_AGENT_NOT_FOUND"
	ErrWorldBusy     = "E_WORLD_BUSY"

	// External collaborators.
	ErrLLMUnavailable = "E_LLM_UNAVAILABLE"
	ErrInternal       = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:     {},
	ErrBadSeed:        {},
	ErrAgentNotFound:  {},
	ErrWorldBusy:      {},
	ErrLLMUnavailable: {},
	ErrInternal:       {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
