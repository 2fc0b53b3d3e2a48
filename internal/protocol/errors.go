package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrRateLimit       = "E_RATE_LIMIT"

	// Routing/session.
	ErrNotInHome  = "E_NOT_IN_HOME"
	ErrMapUnknown = "E_MAP_UNKNOWN"

	// Construction rules.
	ErrCantPlaceHere        = "E_CANT_PLACE_HERE"
	ErrUnknownItem          = "E_UNKNOWN_ITEM"
	ErrDelegateOwnerMissing = "E_DELEGATE_OWNER_MISSING"
	ErrNoPermission         = "E_NO_PERMISSION"
	ErrInsufficientFunds    = "E_INSUFFICIENT_FUNDS"
	ErrClearInteriorFirst   = "E_CLEAR_INTERIOR_FIRST"
	ErrNotFound             = "E_NOT_FOUND"
	ErrCharacterNotFound    = "E_CHARACTER_NOT_FOUND"
	ErrPlotTaken            = "E_PLOT_TAKEN"
	ErrBadRequest           = "E_BAD_REQUEST"
	ErrInternal             = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:      {},
	ErrRateLimit:            {},
	ErrNotInHome:            {},
	ErrMapUnknown:           {},
	ErrCantPlaceHere:        {},
	ErrUnknownItem:          {},
	ErrDelegateOwnerMissing: {},
	ErrNoPermission:         {},
	ErrInsufficientFunds:    {},
	ErrClearInteriorFirst:   {},
	ErrNotFound:             {},
	ErrCharacterNotFound:    {},
	ErrPlotTaken:            {},
	ErrBadRequest:           {},
	ErrInternal:             {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// Notice codes carried by NOTICE messages.
const (
	NoticeAutomaticRemoval = "AUTOMATIC_REMOVAL_COMPLETED"
	NoticeKickScheduled    = "KICK_SCHEDULED"
	NoticeLayoutLoaded     = "LAYOUT_LOADED"
)
