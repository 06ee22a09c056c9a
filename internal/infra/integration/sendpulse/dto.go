package sendpulse

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type templateRequest struct {
	BotID    string   `json:"bot_id"`
	Phone    string   `json:"phone"`
	Template template `json:"template"`
}

type template struct {
	Name       string              `json:"name"`
	Language   language            `json:"language"`
	Components []templateComponent `json:"components"`
}

type language struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string          `json:"type"`
	Parameters []textParameter `json:"parameters"`
}

type textParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messageRequest struct {
	BotID     string  `json:"bot_id"`
	Phone     string  `json:"phone"`
	ContactID string  `json:"contact_id,omitempty"`
	Message   message `json:"message"`
}

type message struct {
	Type        string       `json:"type"`
	Text        *textBody    `json:"text,omitempty"`
	Interactive *interactive `json:"interactive,omitempty"`
}

type textBody struct {
	Body string `json:"body"`
}

type interactive struct {
	Type   string            `json:"type"`
	Body   textPart          `json:"body"`
	Action interactiveAction `json:"action"`
}

type textPart struct {
	Text string `json:"text"`
}

type interactiveAction struct {
	Buttons []replyButton `json:"buttons"`
}

type replyButton struct {
	Type  string `json:"type"`
	Reply reply  `json:"reply"`
}

type reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// sendResponse is returned by both send endpoints.
type sendResponse struct {
	Success bool `json:"success"`
	Data    struct {
		ID        string `json:"id"`
		ContactID string `json:"contact_id"`
		Status    int    `json:"status"`
		Data      struct {
			MessageID string `json:"message_id"`
		} `json:"data"`
	} `json:"data"`
}

type contactResponse struct {
	Success bool `json:"success"`
	Data    struct {
		ID string `json:"id"`
	} `json:"data"`
}

type addContactRequest struct {
	Phone string `json:"phone"`
	BotID string `json:"bot_id"`
}

type chatMessagesResponse struct {
	Success bool          `json:"success"`
	Data    []chatMessage `json:"data"`
}

type chatMessage struct {
	ID        string `json:"id"`
	Status    int    `json:"status"`
	Direction int    `json:"direction"`
	CreatedAt string `json:"created_at"`
}
