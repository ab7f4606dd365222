package control

import "errors"

// ErrInvalidArgument is returned for malformed operator input, such as a
// non-positive lap time or duration. Never retried.
var ErrInvalidArgument = errors.New("invalid argument")
