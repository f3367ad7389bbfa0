// Package gateway implements the messaging gateway: the outbound
// Telegram Bot API client and the inbound webhook payload parsing.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// MessageHandle identifies a sent message so it can be edited later.
type MessageHandle int64

// Messenger is the outbound surface the rest of the system talks to.
// Neither call is assumed to succeed; callers must branch on the error
// and fall back to Send when an Edit fails.
type Messenger interface {
	// Send delivers an HTML-formatted message to the chat and returns a
	// handle usable with Edit.
	Send(ctx context.Context, chatID int64, text string) (MessageHandle, error)

	// Edit replaces the text of a previously sent message.
	Edit(ctx context.Context, chatID int64, handle MessageHandle, text string) error
}

// ClientConfig holds the Telegram client settings.
type ClientConfig struct {
	BotToken string
	// APIURL overrides the Bot API base URL (used in tests).
	APIURL string
	// MessagesPerSecond caps outbound calls. The Bot API throttles bots
	// around 30 messages per second globally; staying under that avoids
	// 429 responses.
	MessagesPerSecond float64
	Timeout           time.Duration
}

// Client is a Telegram Bot API messenger.
type Client struct {
	token      string
	apiURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Telegram client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.telegram.org"
	}
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = 25
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		token:      cfg.BotToken,
		apiURL:     cfg.APIURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.MessagesPerSecond), 1),
	}
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type editMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type messageResult struct {
	MessageID int64 `json:"message_id"`
}

// Send delivers text to the chat with HTML formatting.
func (c *Client) Send(ctx context.Context, chatID int64, text string) (MessageHandle, error) {
	result, err := c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return 0, err
	}

	var msg messageResult
	if err := json.Unmarshal(result, &msg); err != nil {
		return 0, fmt.Errorf("telegram: failed to parse send result: %w", err)
	}
	return MessageHandle(msg.MessageID), nil
}

// Edit replaces the text of a previously sent message.
func (c *Client) Edit(ctx context.Context, chatID int64, handle MessageHandle, text string) error {
	_, err := c.call(ctx, "editMessageText", editMessageRequest{
		ChatID:    chatID,
		MessageID: int64(handle),
		Text:      text,
		ParseMode: "HTML",
	})
	return err
}

func (c *Client) call(ctx context.Context, method string, payload interface{}) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("telegram: rate limiter wait: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("telegram: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("telegram: failed to read %s response: %w", method, err)
	}

	var api apiResponse
	if err := json.Unmarshal(respBody, &api); err != nil {
		return nil, fmt.Errorf("telegram: %s returned status %d with unparsable body", method, resp.StatusCode)
	}
	if !api.OK {
		return nil, fmt.Errorf("telegram: %s rejected: %s", method, api.Description)
	}
	return api.Result, nil
}

var _ Messenger = (*Client)(nil)
