package position

import "errors"

var (
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrCorruptCheckpoint     = errors.New("corrupt checkpoint")
	ErrMissingField          = errors.New("missing field")
	ErrMalformedField        = errors.New("malformed field")
	ErrNoCheckpoint          = errors.New("no stored checkpoint")
	ErrPreconditionViolation = errors.New("precondition violation")
)
