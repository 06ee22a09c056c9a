package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/lead-followup/internal/usecase"
)

// InteractiveHandler exposes the operator triggers and the reporting reads.
type InteractiveHandler struct {
	Admin *usecase.AdminUseCase
	Stats *usecase.StatsUseCase
}

func NewInteractiveHandler(admin *usecase.AdminUseCase, stats *usecase.StatsUseCase) *InteractiveHandler {
	return &InteractiveHandler{Admin: admin, Stats: stats}
}

func (h *InteractiveHandler) HandleDays4Response(w http.ResponseWriter, r *http.Request) {
	var in usecase.Days4ResponseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		ErrorWithCode(w, r, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if errs := usecase.ValidateDays4ResponseInput(in); len(errs) > 0 {
		ValidationFailed(w, r, errs)
		return
	}

	out, err := h.Admin.HandleDays4Response(r.Context(), in)
	if err != nil {
		UseCaseError(w, r, err)
		return
	}

	JSON(w, r, http.StatusOK, map[string]any{
		"status":        "success",
		"next_stage":    out.Decision.Next.String(),
		"messages_sent": len(out.Sent),
	})
}

func (h *InteractiveHandler) ResendSellerSelection(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if errs := usecase.ValidatePhone(phone); len(errs) > 0 {
		ValidationFailed(w, r, errs)
		return
	}

	sent, err := h.Admin.ResendSellerSelection(r.Context(), phone)
	if err != nil {
		UseCaseError(w, r, err)
		return
	}

	JSON(w, r, http.StatusOK, map[string]any{
		"status":   "success",
		"messages": sent,
	})
}

func (h *InteractiveHandler) SendErrorMessage(w http.ResponseWriter, r *http.Request) {
	var in usecase.SendErrorMessageInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		ErrorWithCode(w, r, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if errs := usecase.ValidateSendErrorMessageInput(in); len(errs) > 0 {
		ValidationFailed(w, r, errs)
		return
	}

	if err := h.Admin.SendErrorMessage(r.Context(), in); err != nil {
		UseCaseError(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, map[string]string{"status": "success"})
}

func (h *InteractiveHandler) MessageHistory(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if errs := usecase.ValidatePhone(phone); len(errs) > 0 {
		ValidationFailed(w, r, errs)
		return
	}

	out, err := h.Admin.MessageHistory(r.Context(), phone)
	if err != nil {
		UseCaseError(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, out)
}

func (h *InteractiveHandler) SellerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.SellerStats(r.Context())
	if err != nil {
		UseCaseError(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, map[string]any{"sellers": stats})
}

func (h *InteractiveHandler) ClickStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.ClickStats(r.Context())
	if err != nil {
		UseCaseError(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, stats)
}
