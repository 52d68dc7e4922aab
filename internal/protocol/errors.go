package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Engine surface.
	ErrUnknownAgent     = "E_UNKNOWN_AGENT"
	ErrDuplicateSnap    = "E_DUPLICATE_SNAP_POINT"
	ErrUnknownStructure = "E_UNKNOWN_STRUCTURE"
	ErrNoViableRoute    = "E_NO_VIABLE_ROUTE"
	ErrStaleGoal        = "E_STALE_GOAL"
	ErrBadTuning        = "E_BAD_TUNING"
	ErrScoreCollapse    = "E_SCORE_COLLAPSE"
	ErrInternal         = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrUnknownAgent:     {},
	ErrDuplicateSnap:    {},
	ErrUnknownStructure: {},
	ErrNoViableRoute:    {},
	ErrStaleGoal:        {},
	ErrBadTuning:        {},
	ErrScoreCollapse:    {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
