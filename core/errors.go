package core

import "errors"

var (
	ErrInvalidSpectrum    = errors.New("invalid spectrum")
	ErrInvalidScreen      = errors.New("invalid screen configuration")
	ErrInvalidObservation = errors.New("invalid observation")
	ErrNoIntersection     = errors.New("line of sight misses the ionospheric shell")
)
