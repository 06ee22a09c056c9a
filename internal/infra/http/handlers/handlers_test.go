package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/lead-followup/internal/entity"
	"github.com/xavierca1/lead-followup/internal/usecase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeEvents(t *testing.T, body string) []WebhookEvent {
	t.Helper()
	var events []WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(body), &events))
	return events
}

func TestWebhookEvent_Inbound(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantPhone string
		wantToken string
		wantText  string
	}{
		{
			name:      "template button payload",
			body:      `[{"contact":{"phone":"+380501112233","name":"Ivan"},"info":{"message":{"channel_data":{"message":{"type":"button","button":{"payload":"no","text":"No"}}}}}}]`,
			wantPhone: "380501112233",
			wantToken: "no",
		},
		{
			name:      "template button without payload",
			body:      `[{"contact":{"phone":"380501112233"},"info":{"message":{"channel_data":{"message":{"type":"button","button":{"text":"Yes"}}}}}}]`,
			wantPhone: "380501112233",
			wantToken: "yes",
		},
		{
			name:      "interactive reply",
			body:      `[{"contact":{"phone":"380501112233"},"info":{"message":{"channel_data":{"message":{"type":"interactive","interactive":{"button_reply":{"id":"Dan_Fox","title":"Dan Fox"}}}}}}}]`,
			wantPhone: "380501112233",
			wantToken: "Dan_Fox",
		},
		{
			name:      "free text",
			body:      `[{"contact":{"phone":"380501112233"},"info":{"message":{"channel_data":{"message":{"type":"text","text":{"body":"hello"}}}}}}]`,
			wantPhone: "380501112233",
			wantText:  "hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := decodeEvents(t, tt.body)
			require.Len(t, events, 1)

			ev := events[0].Inbound()
			assert.Equal(t, tt.wantPhone, ev.Phone)
			assert.Equal(t, tt.wantToken, ev.Token)
			assert.Equal(t, tt.wantText, ev.Text)
		})
	}
}

func TestWebhookHandler(t *testing.T) {
	h := NewWebhookHandler(usecase.NewHandleInboundUseCase(nil, nil, nil, nil, discardLogger()))

	t.Run("invalid json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Handle(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"not":"an array"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_JSON")
	})

	t.Run("text only events are ignored", func(t *testing.T) {
		body := `[{"contact":{"phone":"380501112233"},"info":{"message":{"channel_data":{"message":{"type":"text","text":{"body":"hi"}}}}}}]`
		rec := httptest.NewRecorder()
		h.Handle(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "success", got["status"])
		assert.EqualValues(t, 0, got["processed"])
		assert.EqualValues(t, 1, got["ignored"])
	})

	t.Run("empty array", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Handle(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`[]`)))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestUseCaseError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"contact not found", &usecase.DomainError{Code: usecase.CodeContactNotFound, Message: "contact not found"}, http.StatusNotFound, usecase.CodeContactNotFound},
		{"invalid button", &usecase.DomainError{Code: usecase.CodeInvalidButton, Message: "bad button"}, http.StatusBadRequest, usecase.CodeInvalidButton},
		{"no transition", &usecase.DomainError{Code: usecase.CodeNoTransition, Message: "terminal"}, http.StatusUnprocessableEntity, usecase.CodeNoTransition},
		{"upstream", &usecase.TechnicalError{Code: usecase.CodeUpstream, Message: "sendpulse", Err: errors.New("502")}, http.StatusBadGateway, usecase.CodeUpstream},
		{"storage", fmt.Errorf("wrapped: %w", &usecase.TechnicalError{Code: usecase.CodeStorage, Message: "db"}), http.StatusInternalServerError, usecase.CodeStorage},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			UseCaseError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestHealthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := NewHealthHandler("1.0.0", map[string]Check{
			"database": func(context.Context) error { return nil },
			"redis":    nil,
		})
		rec := httptest.NewRecorder()
		h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var got HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "healthy", got.Status)
		assert.Equal(t, "not configured", got.Dependencies["redis"])
	})

	t.Run("degraded", func(t *testing.T) {
		h := NewHealthHandler("1.0.0", map[string]Check{
			"database": func(context.Context) error { return errors.New("connection refused") },
		})
		rec := httptest.NewRecorder()
		h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var got HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "degraded", got.Status)
		assert.Contains(t, got.Dependencies["database"], "connection refused")
	})
}

func TestInteractiveHandler_Validation(t *testing.T) {
	h := NewInteractiveHandler(nil, nil)
	r := chi.NewRouter()
	r.Post("/handle_days4_response", h.HandleDays4Response)
	r.Post("/send_error_message", h.SendErrorMessage)
	r.Get("/message_history/{phone}", h.MessageHistory)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   string
	}{
		{"days4 bad email", http.MethodPost, "/handle_days4_response", `{"email":"nope","response":"yes"}`, `"email":"is invalid"`},
		{"days4 bad response", http.MethodPost, "/handle_days4_response", `{"email":"ivan@example.com","response":"maybe"}`, `"response":"must be yes or no"`},
		{"days4 broken json", http.MethodPost, "/handle_days4_response", `{`, "INVALID_JSON"},
		{"error message empty", http.MethodPost, "/send_error_message", `{"phone":"380501112233"}`, `"message":"is required"`},
		{"history short phone", http.MethodGet, "/message_history/123", "", `"phone":"must be a valid phone number"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestMessageHandler_ContactIDParam(t *testing.T) {
	h := NewMessageHandler(nil, nil)
	r := chi.NewRouter()
	r.Post("/send_template_message/{contactID}", h.SendTemplateMessage)
	r.Get("/get_contact_messages/{contactID}", h.ContactMessages)

	for _, path := range []string{"/send_template_message/abc", "/send_template_message/0", "/get_contact_messages/-4"} {
		method := http.MethodPost
		if strings.HasPrefix(path, "/get_") {
			method = http.MethodGet
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, rec.Body.String(), usecase.CodeValidation, path)
	}
}

type noContacts struct{}

func (noContacts) FindByID(context.Context, int64) (*entity.Contact, error) {
	return nil, entity.ErrContactNotFound
}

func (noContacts) FindByPhone(context.Context, string) (*entity.Contact, error) {
	return nil, entity.ErrContactNotFound
}

func (noContacts) FindByEmail(context.Context, string) (*entity.Contact, error) {
	return nil, entity.ErrContactNotFound
}

type savedClicks struct {
	clicks []*entity.ClickEvent
}

func (s *savedClicks) Save(_ context.Context, c *entity.ClickEvent) error {
	s.clicks = append(s.clicks, c)
	return nil
}

func TestClickHandler_UnknownContactRedirectsHome(t *testing.T) {
	clicks := &savedClicks{}
	uc := usecase.NewTrackClickUseCase(noContacts{}, clicks, nil, "https://bimedis.test", "https://bimedis.test/search", discardLogger())
	h := NewClickHandler(uc)

	req := httptest.NewRequest(http.MethodGet, "/track_click?email=ghost%40example.com&response=yes&template=days4", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	rec := httptest.NewRecorder()
	h.TrackClick(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://bimedis.test", rec.Header().Get("Location"))
	require.Len(t, clicks.clicks, 1)
	assert.Equal(t, "ghost@example.com", clicks.clicks[0].Email)
	assert.Equal(t, "Mozilla/5.0", clicks.clicks[0].UserAgent)
	assert.Nil(t, clicks.clicks[0].ContactID)
}
