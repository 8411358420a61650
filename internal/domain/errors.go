package domain

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrNoVariants = errors.New("no variants available")
	ErrConfig     = errors.New("invalid configuration")
)
