package persistence

import "github.com/go-faster/errors"

var (
	ErrUnknownCategory = errors.New("unknown territory category")
	ErrUnknownDriver   = errors.New("unknown storage driver")
)
