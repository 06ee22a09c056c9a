package handlers

import (
	"net/http"

	"github.com/xavierca1/lead-followup/internal/usecase"
)

type ClickHandler struct {
	UC *usecase.TrackClickUseCase
}

func NewClickHandler(uc *usecase.TrackClickUseCase) *ClickHandler {
	return &ClickHandler{UC: uc}
}

// TrackClick (GET /track_click?email=&response=&template=) records the click
// and redirects the browser.
func (h *ClickHandler) TrackClick(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out := h.UC.Execute(r.Context(), usecase.TrackClickInput{
		Email:     q.Get("email"),
		Response:  q.Get("response"),
		Template:  q.Get("template"),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	})
	http.Redirect(w, r, out.RedirectURL, http.StatusFound)
}
