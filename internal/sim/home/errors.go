package home

import (
	"errors"
	"fmt"

	"homecraft.ai/internal/protocol"
	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

var (
	ErrInvalidCoordinate = errors.New("cannot place here")
	ErrUnknownItem       = errors.New("unknown or unplaceable item")
	ErrOwnerUnresolved   = errors.New("home owner is not connected")
	ErrPermissionDenied  = errors.New("no building permission")
	ErrClearFirst        = errors.New("clear the interior first")
	ErrNotFound          = errors.New("not found")
	ErrUnknownCharacter  = errors.New("character not found")
	ErrPlotTaken         = errors.New("plot already owned")
	ErrNotInInstance     = errors.New("session is not in this instance")
	ErrBadRequest        = errors.New("bad request")
	ErrClosed            = errors.New("instance closed")
)

// InsufficientFundsError names the currency a debit failed on. Budget is set when
// the home budget was charged instead of the player's wallet.
type InsufficientFundsError struct {
	Currency modelpkg.Currency
	Budget   bool
}

func (e *InsufficientFundsError) Error() string {
	if e.Budget {
		return fmt.Sprintf("Budget doesn't have enough %s!", e.Currency)
	}
	return fmt.Sprintf("You don't have enough %s!", e.Currency)
}

// Silent reports errors that are dropped without telling the requester.
func Silent(err error) bool {
	return errors.Is(err, ErrUnknownItem) || errors.Is(err, ErrNotFound)
}

// Code maps an engine error to its protocol error code.
func Code(err error) string {
	var funds *InsufficientFundsError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &funds):
		return protocol.ErrInsufficientFunds
	case errors.Is(err, ErrInvalidCoordinate):
		return protocol.ErrCantPlaceHere
	case errors.Is(err, ErrUnknownItem):
		return protocol.ErrUnknownItem
	case errors.Is(err, ErrOwnerUnresolved):
		return protocol.ErrDelegateOwnerMissing
	case errors.Is(err, ErrPermissionDenied):
		return protocol.ErrNoPermission
	case errors.Is(err, ErrClearFirst):
		return protocol.ErrClearInteriorFirst
	case errors.Is(err, ErrNotFound):
		return protocol.ErrNotFound
	case errors.Is(err, ErrUnknownCharacter):
		return protocol.ErrCharacterNotFound
	case errors.Is(err, ErrPlotTaken):
		return protocol.ErrPlotTaken
	case errors.Is(err, ErrNotInInstance):
		return protocol.ErrNotInHome
	case errors.Is(err, ErrBadRequest):
		return protocol.ErrBadRequest
	default:
		return protocol.ErrInternal
	}
}
