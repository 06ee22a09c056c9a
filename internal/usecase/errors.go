package usecase

import (
	"errors"
	"fmt"
)

// Error codes shared with the HTTP layer.
const (
	CodeContactNotFound = "CONTACT_NOT_FOUND"
	CodeNoTransition    = "NO_TRANSITION"
	CodeInvalidButton   = "INVALID_SELLER_BUTTON"
	CodeNoChannel       = "NO_CHANNEL"
	CodeValidation      = "VALIDATION_ERROR"
	CodeUpstream        = "UPSTREAM_FAILURE"
	CodeStorage         = "STORAGE_FAILURE"
)

// DomainError is an expected failure caused by the input or the contact's data.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError wraps a failure of a collaborator (provider, SMTP, database).
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// ErrorCode extracts the code of a domain or technical error.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	var te *TechnicalError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

func upstreamError(msg string, err error) error {
	return &TechnicalError{Code: CodeUpstream, Message: msg, Err: err}
}

func storageError(msg string, err error) error {
	return &TechnicalError{Code: CodeStorage, Message: msg, Err: err}
}

func contactNotFound(key string) error {
	return &DomainError{Code: CodeContactNotFound, Message: fmt.Sprintf("contact not found for %s", key)}
}
