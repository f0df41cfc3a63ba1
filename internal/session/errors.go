package session

import "errors"

var (
	ErrNotFound       = errors.New("session not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotReady       = errors.New("session is not ready for analysis")
	ErrAlreadyRunning = errors.New("analysis already running")
)

const (
	ErrorCodeValidation   = "VALIDATION_ERROR"
	ErrorCodeExternalCall = "EXTERNAL_CALL_ERROR"
	ErrorCodeStorage      = "STORAGE_ERROR"
	ErrorCodeInternal     = "INTERNAL_ERROR"
)
