package models

import "errors"

// ErrInvalidArgument is returned when an entity is constructed or mutated
// with a value it cannot accept (negative window, empty group, negative delta).
var ErrInvalidArgument = errors.New("invalid argument")
