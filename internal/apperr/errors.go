package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrNoPost        = errors.New("no post available")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidPath   = errors.New("invalid path")
)
