package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/lead-followup/internal/usecase"
)

type MessageHandler struct {
	Day1  *usecase.SendDay1UseCase
	Admin *usecase.AdminUseCase
}

func NewMessageHandler(day1 *usecase.SendDay1UseCase, admin *usecase.AdminUseCase) *MessageHandler {
	return &MessageHandler{Day1: day1, Admin: admin}
}

func (h *MessageHandler) SendTemplateMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := contactIDParam(w, r)
	if !ok {
		return
	}

	out, err := h.Day1.Execute(r.Context(), id)
	if err != nil {
		UseCaseError(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, out)
}

func (h *MessageHandler) ContactMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := contactIDParam(w, r)
	if !ok {
		return
	}

	out, err := h.Admin.ContactMessages(r.Context(), id)
	if err != nil {
		UseCaseError(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, out)
}

// CheckMessageStatus takes the provider's contact id, not ours.
func (h *MessageHandler) CheckMessageStatus(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "contactID")
	if providerID == "" {
		ErrorWithCode(w, r, http.StatusBadRequest, "contact id is required", usecase.CodeValidation)
		return
	}

	m, err := h.Admin.MessageStatus(r.Context(), providerID)
	if err != nil {
		UseCaseError(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, m)
}

func contactIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "contactID"), 10, 64)
	if err != nil || id <= 0 {
		ErrorWithCode(w, r, http.StatusBadRequest, "contact id must be a positive integer", usecase.CodeValidation)
		return 0, false
	}
	return id, true
}
