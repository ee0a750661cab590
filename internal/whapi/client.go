// Package whapi sends outbound WhatsApp messages through the Whapi.cloud
// gateway API.
package whapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/brainytots/whatsapp-connect/pkg/logging"
)

const (
	// maxButtons is the channel limit on quick-reply buttons per message.
	maxButtons = 3
	// maxButtonTitleRunes is the channel limit on a button label.
	maxButtonTitleRunes = 24
)

// ErrNoButtons is returned when SendButtons is called without a single
// usable label. That is a caller bug, not a channel condition.
var ErrNoButtons = errors.New("whapi: at least one non-empty button title required")

// Client posts messages to the Whapi.cloud API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logging.Logger
	tracer     trace.Tracer
}

// NewClient builds a Whapi client with a bounded request timeout.
func NewClient(baseURL, token string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
		tracer: otel.Tracer("whatsapp-connect.internal.whapi"),
	}
}

// SendText sends a plain text message to a phone number.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	ctx, span := c.tracer.Start(ctx, "whapi.send_text")
	defer span.End()
	span.SetAttributes(attribute.String("whapi.to", to))

	payload := map[string]string{
		"to":   to,
		"body": body,
	}
	if err := c.post(ctx, "/messages/text", payload); err != nil {
		span.RecordError(err)
		return err
	}
	c.logger.Info("sent text message", "to", to)
	return nil
}

type button struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SendButtons sends a message with up to three quick-reply buttons. Titles
// beyond the channel length limit are truncated; empty titles are dropped.
func (c *Client) SendButtons(ctx context.Context, to, body string, titles []string) error {
	ctx, span := c.tracer.Start(ctx, "whapi.send_buttons")
	defer span.End()
	span.SetAttributes(attribute.String("whapi.to", to))

	buttons := buildButtons(titles)
	if len(buttons) == 0 {
		span.RecordError(ErrNoButtons)
		return ErrNoButtons
	}

	payload := map[string]any{
		"to":   to,
		"type": "button",
		"body": map[string]string{"text": body},
		"action": map[string]any{
			"buttons": buttons,
		},
	}
	if err := c.post(ctx, "/messages/interactive", payload); err != nil {
		span.RecordError(err)
		return err
	}
	c.logger.Info("sent button message", "to", to, "buttons", len(buttons))
	return nil
}

func buildButtons(titles []string) []button {
	buttons := make([]button, 0, maxButtons)
	for _, title := range titles {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		if runes := []rune(title); len(runes) > maxButtonTitleRunes {
			title = string(runes[:maxButtonTitleRunes])
		}
		buttons = append(buttons, button{
			Type:  "quick_reply",
			ID:    fmt.Sprintf("btn_%d", len(buttons)),
			Title: title,
		})
		if len(buttons) == maxButtons {
			break
		}
	}
	return buttons
}

// SendLink sends text containing a link. The channel renders the preview, so
// this delegates to a plain text send.
func (c *Client) SendLink(ctx context.Context, to, body, url string) error {
	_ = url
	return c.SendText(ctx, to, body)
}

// SendList sends a message with a list of options grouped in sections.
func (c *Client) SendList(ctx context.Context, to, body, buttonText string, sections []map[string]any) error {
	ctx, span := c.tracer.Start(ctx, "whapi.send_list")
	defer span.End()
	span.SetAttributes(attribute.String("whapi.to", to))

	payload := map[string]any{
		"to":   to,
		"type": "list",
		"body": map[string]string{"text": body},
		"action": map[string]any{
			"button":   buttonText,
			"sections": sections,
		},
	}
	if err := c.post(ctx, "/messages/interactive", payload); err != nil {
		span.RecordError(err)
		return err
	}
	c.logger.Info("sent list message", "to", to)
	return nil
}

// MarkAsRead flags an inbound message as read. Best effort: failures are
// logged, never surfaced to the conversation.
func (c *Client) MarkAsRead(ctx context.Context, messageID string) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	endpoint := fmt.Sprintf("%s/messages/%s/read", c.baseURL, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("failed to mark message as read", "message_id", messageID, "error", err)
		return
	}
	resp.Body.Close()
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whapi: failed to marshal %s payload: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whapi: failed to build %s request: %w", path, err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whapi: %s failed: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whapi: %s returned status %d", path, resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
}
