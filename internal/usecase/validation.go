package usecase

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var nonDigits = regexp.MustCompile(`\D`)

const maxSupportMessage = 4096

func ValidateDays4ResponseInput(input Days4ResponseInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.Email) == "" {
		errors = append(errors, ValidationError{"email", "is required"})
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		errors = append(errors, ValidationError{"email", "is invalid"})
	}

	switch strings.ToLower(strings.TrimSpace(input.Response)) {
	case "":
		errors = append(errors, ValidationError{"response", "is required"})
	case ReplyYes, ReplyNo:
	default:
		errors = append(errors, ValidationError{"response", "must be yes or no"})
	}

	return errors
}

func ValidateSendErrorMessageInput(input SendErrorMessageInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.Phone) == "" {
		errors = append(errors, ValidationError{"phone", "is required"})
	} else if !isValidPhoneNumber(input.Phone) {
		errors = append(errors, ValidationError{"phone", "must be a valid phone number"})
	}

	if strings.TrimSpace(input.Message) == "" {
		errors = append(errors, ValidationError{"message", "is required"})
	} else if len(input.Message) > maxSupportMessage {
		errors = append(errors, ValidationError{"message", fmt.Sprintf("must not exceed %d characters", maxSupportMessage)})
	}

	return errors
}

// ValidatePhone checks a phone taken from a URL path.
func ValidatePhone(phone string) []ValidationError {
	if strings.TrimSpace(phone) == "" {
		return []ValidationError{{"phone", "is required"}}
	}
	if !isValidPhoneNumber(phone) {
		return []ValidationError{{"phone", "must be a valid phone number"}}
	}
	return nil
}

// isValidPhoneNumber accepts E.164 lengths, with or without the leading plus.
func isValidPhoneNumber(phone string) bool {
	cleaned := nonDigits.ReplaceAllString(phone, "")
	return len(cleaned) >= 8 && len(cleaned) <= 15
}
