package sendpulse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xavierca1/lead-followup/internal/config"
	"github.com/xavierca1/lead-followup/internal/entity"
	"github.com/xavierca1/lead-followup/internal/infra/http/middleware"
)

const (
	serviceName     = "sendpulse"
	templateLangEN  = "en"
	defaultTokenTTL = time.Hour
)

var ErrNotFound = errors.New("sendpulse: not found")

// Client talks to the SendPulse WhatsApp API with a cached client-credentials
// token.
type Client struct {
	HTTPClient   *http.Client
	BaseURL      string
	ClientID     string
	ClientSecret string
	BotID        string
	logger       *slog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(cfg config.SendPulse, logger *slog.Logger) *Client {
	return &Client{
		HTTPClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		BaseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		BotID:        cfg.BotID,
		logger:       logger.With(slog.String("component", serviceName)),
	}
}

// EnsureAuthenticated refreshes the token when it is missing or about to
// expire.
func (c *Client) EnsureAuthenticated(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Add(30*time.Second).Before(c.tokenExpiry) {
		return c.token, nil
	}

	body, err := json.Marshal(tokenRequest{
		GrantType:    "client_credentials",
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/oauth/access_token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		middleware.RecordIntegrationError(serviceName)
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		middleware.RecordIntegrationError(serviceName)
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("token request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var data tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if data.AccessToken == "" {
		return "", errors.New("token response without access_token")
	}

	ttl := time.Duration(data.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	c.token = data.AccessToken
	c.tokenExpiry = time.Now().Add(ttl)

	c.logger.DebugContext(ctx, "token refreshed", slog.Duration("ttl", ttl))
	return c.token, nil
}

// Send delivers msg to phone: the approved template when msg.Template is
// set, otherwise a text or reply-button message.
func (c *Client) Send(ctx context.Context, phone string, msg entity.Outbound) (entity.Delivery, error) {
	phone = entity.NormalizePhone(phone)

	var (
		path    string
		payload any
		body    string
	)

	if msg.Template != "" {
		params := make([]textParameter, 0, len(msg.Params))
		for _, p := range msg.Params {
			params = append(params, textParameter{Type: "text", Text: p})
		}
		path = "/whatsapp/contacts/sendTemplateByPhone"
		payload = templateRequest{
			BotID: c.BotID,
			Phone: phone,
			Template: template{
				Name:       msg.Template,
				Language:   language{Code: templateLangEN},
				Components: []templateComponent{{Type: "body", Parameters: params}},
			},
		}
		body = strings.Join(msg.Params, "\n")
	} else {
		contactID, err := c.FindOrCreateContact(ctx, phone)
		if err != nil {
			// the send endpoint also resolves the phone on its own
			c.logger.WarnContext(ctx, "contact lookup failed, sending by phone", slog.String("error", err.Error()))
		}
		path = "/whatsapp/contacts/send"
		payload = messageRequest{
			BotID:     c.BotID,
			Phone:     phone,
			ContactID: contactID,
			Message:   buildMessage(msg),
		}
		body = msg.Text
	}

	var out sendResponse
	if err := c.do(ctx, http.MethodPost, path, payload, &out); err != nil {
		return entity.Delivery{}, err
	}
	if !out.Success {
		middleware.RecordIntegrationError(serviceName)
		return entity.Delivery{}, fmt.Errorf("send to %s: provider reported failure", phone)
	}

	status := entity.MessageStatus(out.Data.Status)
	if status == entity.MessageStatusPending {
		status = entity.MessageStatusSent
	}

	return entity.Delivery{
		Channel:           entity.ChannelWhatsApp,
		Body:              body,
		WhatsAppMessageID: out.Data.Data.MessageID,
		ProviderMessageID: out.Data.ID,
		ProviderContactID: out.Data.ContactID,
		Status:            status,
	}, nil
}

func buildMessage(msg entity.Outbound) message {
	if len(msg.Buttons) == 0 {
		return message{Type: "text", Text: &textBody{Body: msg.Text}}
	}

	buttons := make([]replyButton, 0, len(msg.Buttons))
	for _, b := range msg.Buttons {
		buttons = append(buttons, replyButton{Type: "reply", Reply: reply{ID: b.ID, Title: b.Title}})
	}
	return message{
		Type: "interactive",
		Interactive: &interactive{
			Type:   "button",
			Body:   textPart{Text: msg.Text},
			Action: interactiveAction{Buttons: buttons},
		},
	}
}

// FindOrCreateContact returns the provider contact id for phone, adding the
// contact to the bot when it does not exist yet.
func (c *Client) FindOrCreateContact(ctx context.Context, phone string) (string, error) {
	q := url.Values{"phone": {phone}, "bot_id": {c.BotID}}

	var found contactResponse
	err := c.do(ctx, http.MethodGet, "/whatsapp/contacts/getByPhone?"+q.Encode(), nil, &found)
	if err == nil && found.Data.ID != "" {
		return found.Data.ID, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}

	var created contactResponse
	if err := c.do(ctx, http.MethodPost, "/whatsapp/contacts/add", addContactRequest{Phone: phone, BotID: c.BotID}, &created); err != nil {
		return "", err
	}
	return created.Data.ID, nil
}

// LastMessage returns the newest message of a provider contact, or nil when
// the chat is empty.
func (c *Client) LastMessage(ctx context.Context, providerContactID string) (*entity.ProviderMessage, error) {
	q := url.Values{"contact_id": {providerContactID}, "size": {"1"}, "order": {"desc"}}

	var out chatMessagesResponse
	if err := c.do(ctx, http.MethodGet, "/whatsapp/chats/messages?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, nil
	}

	m := out.Data[0]
	return &entity.ProviderMessage{
		ID:        m.ID,
		Status:    entity.MessageStatus(m.Status),
		Direction: m.Direction,
		CreatedAt: m.CreatedAt,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	token, err := c.EnsureAuthenticated(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		middleware.RecordIntegrationError(serviceName)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		c.invalidateToken()
		middleware.RecordIntegrationError(serviceName)
		return fmt.Errorf("%s %s: unauthorized", method, path)
	case resp.StatusCode >= 300:
		middleware.RecordIntegrationError(serviceName)
		c.logger.ErrorContext(ctx, "provider error",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", truncate(string(raw), 512)),
		)
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
