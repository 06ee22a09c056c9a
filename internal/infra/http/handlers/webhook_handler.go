package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xavierca1/lead-followup/internal/usecase"
)

// WebhookEvent is one element of the provider's webhook array.
type WebhookEvent struct {
	Contact struct {
		Phone string `json:"phone"`
		Name  string `json:"name"`
	} `json:"contact"`
	Info struct {
		Message struct {
			ChannelData struct {
				Message WebhookMessage `json:"message"`
			} `json:"channel_data"`
		} `json:"message"`
	} `json:"info"`
}

type WebhookMessage struct {
	Type   string `json:"type"`
	Button *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button,omitempty"`
	Interactive *struct {
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
	} `json:"interactive,omitempty"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

// Inbound reduces the event to the phone, reply token and free text.
func (e WebhookEvent) Inbound() usecase.InboundEvent {
	m := e.Info.Message.ChannelData.Message
	ev := usecase.InboundEvent{
		Phone:       strings.TrimPrefix(strings.TrimSpace(e.Contact.Phone), "+"),
		Name:        e.Contact.Name,
		MessageType: m.Type,
	}

	switch {
	case m.Button != nil:
		ev.Token = m.Button.Payload
		if ev.Token == "" {
			ev.Token = strings.ToLower(m.Button.Text)
		}
	case m.Interactive != nil && m.Interactive.ButtonReply != nil:
		ev.Token = m.Interactive.ButtonReply.ID
	}
	if m.Text != nil {
		ev.Text = m.Text.Body
	}
	return ev
}

type WebhookHandler struct {
	UC *usecase.HandleInboundUseCase
}

func NewWebhookHandler(uc *usecase.HandleInboundUseCase) *WebhookHandler {
	return &WebhookHandler{UC: uc}
}

// Handle accepts the provider's array envelope. Per-event failures are
// reported in the counts; the provider always gets 200 for a parsable body.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var events []WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		ErrorWithCode(w, r, http.StatusBadRequest, "body must be a JSON array of events", "INVALID_JSON")
		return
	}

	inbound := make([]usecase.InboundEvent, 0, len(events))
	for _, e := range events {
		inbound = append(inbound, e.Inbound())
	}

	out := h.UC.Execute(r.Context(), inbound)
	JSON(w, r, http.StatusOK, map[string]any{
		"status":    "success",
		"processed": out.Processed,
		"ignored":   out.Ignored,
		"failed":    out.Failed,
	})
}
