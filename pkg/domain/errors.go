package domain

import "errors"

// Validation errors raised by the parse functions in this package.
var (
	ErrInvalidMemberID = errors.New("invalid member ID")
	ErrUnknownGroup    = errors.New("unknown membership group")
	ErrUnknownSource   = errors.New("unknown source channel")
)
