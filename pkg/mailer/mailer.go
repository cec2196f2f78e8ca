package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Config carries the mail provider settings.
type Config struct {
	Endpoint string
	APIKey   string
	From     string
}

// Client sends mail through an HTTP mail provider API. It satisfies the
// notification dispatcher's EmailSender interface.
type Client struct {
	endpoint string
	apiKey   string
	from     string
	http     *http.Client
	logger   zerolog.Logger
}

// New builds a mail client. Endpoint and API key are required.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("mail endpoint and api key must be provided")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("mail from address must be provided")
	}

	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger.With().Str("component", "mailer").Logger(),
	}, nil
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Send delivers one message to one recipient.
func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      to,
		Subject: subject,
		Text:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call mail provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("mail provider returned status %d", resp.StatusCode)
	}

	c.logger.Debug().Str("to", to).Str("subject", subject).Msg("mail accepted by provider")

	return nil
}
