package handlers

import (
	"net/http"

	"github.com/xavierca1/lead-followup/internal/usecase"
)

type FollowUpHandler struct {
	UC *usecase.FollowUpUseCase
}

func NewFollowUpHandler(uc *usecase.FollowUpUseCase) *FollowUpHandler {
	return &FollowUpHandler{UC: uc}
}

// SendFollowUp (POST /send_follow_up) runs one scheduler pass.
func (h *FollowUpHandler) SendFollowUp(w http.ResponseWriter, r *http.Request) {
	out, err := h.UC.Execute(r.Context())
	if err != nil {
		UseCaseError(w, r, err)
		return
	}

	JSON(w, r, http.StatusOK, map[string]any{
		"status":  "success",
		"cutoff":  out.Cutoff,
		"summary": out.Counts(),
		"results": out.Results,
	})
}
