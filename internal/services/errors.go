package services

import (
	"errors"

	"github.com/campusledger/backend/internal/repository"
)

// Service errors. Handlers map these to HTTP status and error codes with
// errors.Is, so wrap them with %w and never compare strings.
var (
	ErrNotFound       = repository.ErrNotFound
	ErrConflict       = errors.New("conflict")
	ErrValidation     = errors.New("validation failed")
	ErrEmptyDetails   = errors.New("transaction must have at least one detail line")
	ErrUnbalanced     = errors.New("balance mismatch: total debit does not equal total credit")
	ErrInvalidLine    = errors.New("invalid detail line")
	ErrUnknownAccount = errors.New("unknown or inactive account")
)
