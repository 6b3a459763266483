package types

import "errors"

// ARCHITECTURAL DISCOVERY: specific error types enable proper error
// handling and user-friendly error messages throughout the system.
var (
	ErrInvalidLanguageCode = errors.New("languageCode must be a non-empty BCP-47-ish tag")
	ErrInvalidClassCode    = errors.New("classroom code must be 6 uppercase alphanumeric characters")
	ErrInvalidRole         = errors.New("role must be \"teacher\" or \"student\"")
	ErrEmptyText           = errors.New("text cannot be empty")
	ErrContentTooLarge     = errors.New("message content exceeds size limit")
)
