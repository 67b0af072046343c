package domain

import "errors"

var (
	ErrInvalidChat    = errors.New("invalid chat participants")
	ErrEmptyContent   = errors.New("message content is empty")
	ErrContentTooLong = errors.New("message content exceeds limit")
	ErrStore          = errors.New("message store failure")
)
