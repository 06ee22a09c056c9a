package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/xavierca1/lead-followup/internal/usecase"
)

type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Path    string `json:"path"`
}

type ValidationErrorResponse struct {
	Status int               `json:"status"`
	Code   string            `json:"code"`
	Errors map[string]string `json:"errors"`
	Path   string            `json:"path"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Default().ErrorContext(r.Context(), "failed to encode success response", slog.String("error", err.Error()))
		}
	}
}

func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	ErrorWithCode(w, r, status, message, "")
}

func ErrorWithCode(w http.ResponseWriter, r *http.Request, status int, message string, code string) {
	JSON(w, r, status, ErrorResponse{
		Status:  status,
		Message: message,
		Code:    code,
		Path:    r.URL.Path,
	})
}

func ValidationFailed(w http.ResponseWriter, r *http.Request, errs []usecase.ValidationError) {
	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		fields[e.Field] = e.Message
	}
	JSON(w, r, http.StatusBadRequest, ValidationErrorResponse{
		Status: http.StatusBadRequest,
		Code:   usecase.CodeValidation,
		Errors: fields,
		Path:   r.URL.Path,
	})
}

// UseCaseError maps domain errors to 4xx and everything else to 5xx.
func UseCaseError(w http.ResponseWriter, r *http.Request, err error) {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		status := http.StatusUnprocessableEntity
		switch de.Code {
		case usecase.CodeContactNotFound:
			status = http.StatusNotFound
		case usecase.CodeValidation, usecase.CodeInvalidButton:
			status = http.StatusBadRequest
		}
		ErrorWithCode(w, r, status, de.Message, de.Code)
		return
	}

	slog.Default().ErrorContext(r.Context(), "request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)

	status := http.StatusInternalServerError
	if usecase.ErrorCode(err) == usecase.CodeUpstream {
		status = http.StatusBadGateway
	}
	var te *usecase.TechnicalError
	if errors.As(err, &te) {
		ErrorWithCode(w, r, status, te.Message, te.Code)
		return
	}
	ErrorWithCode(w, r, status, "internal error", "")
}
