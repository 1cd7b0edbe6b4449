package matchgo

import (
	"errors"

	"github.com/hupe1980/matchgo/filters"
	"github.com/hupe1980/matchgo/registry"
)

// ErrEngineClosed is returned by every operation after Close.
var ErrEngineClosed = errors.New("engine closed")

// InvalidFilterError indicates a malformed or unknown filter operator. It is
// raised before any subscription state is touched.
//
// This aliases the filters-layer type so callers can match it with errors.As
// without importing the subpackage.
type InvalidFilterError = filters.InvalidFilterError

// BadRequestError indicates an invalid scope/state/users option value.
type BadRequestError = registry.BadRequestError

// NotFoundError indicates an operation against an unknown or permanently
// removed room.
type NotFoundError = registry.NotFoundError

// IsNotFound reports whether err is a room-not-found failure.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInvalidFilter reports whether err stems from a malformed filter body.
func IsInvalidFilter(err error) bool {
	var inv *InvalidFilterError
	return errors.As(err, &inv)
}

// IsBadRequest reports whether err stems from invalid subscription options.
func IsBadRequest(err error) bool {
	var br *BadRequestError
	return errors.As(err, &br)
}
