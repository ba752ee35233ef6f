package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"chikabot/internal/domain"
)

// maxAttempts is the full send budget: the first attempt plus exactly one
// retry for connectivity-class failures.
const maxAttempts = 2

// Client sends replies through the platform's Graph send-message API.
// Send never returns an error; every failure mode becomes an outcome
// value, so callers are a straight-line sequence of checks.
type Client struct {
	accessToken string
	apiBase     string
	client      *http.Client
	logger      *slog.Logger
}

type Config struct {
	AccessToken string
	APIBase     string
	Timeout     time.Duration
	Logger      *slog.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://graph.facebook.com/v21.0"
	}
	return &Client{
		accessToken: cfg.AccessToken,
		apiBase:     cfg.APIBase,
		client:      newHTTPClient(cfg.Timeout),
		logger:      cfg.Logger,
	}
}

type sendRequest struct {
	Recipient party       `json:"recipient"`
	Message   messageBody `json:"message"`
}

type party struct {
	ID string `json:"id"`
}

type messageBody struct {
	Text string `json:"text"`
}

type sendResponse struct {
	RecipientID string    `json:"recipient_id"`
	MessageID   string    `json:"message_id"`
	Error       *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// Send delivers text to the recipient. A failure with no response received
// (timeout, connection refused) is retried exactly once with no backoff;
// any received error response is permanent — a bad recipient or token does
// not get better by retrying.
func (c *Client) Send(ctx context.Context, recipientID, text string) domain.DeliveryOutcome {
	body, err := json.Marshal(sendRequest{
		Recipient: party{ID: recipientID},
		Message:   messageBody{Text: text},
	})
	if err != nil {
		return failure(fmt.Sprintf("marshal request: %s", err))
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/me/messages", bytes.NewReader(body))
		if err != nil {
			return failure(fmt.Sprintf("build request: %s", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.accessToken)

		resp, err := c.client.Do(req)
		if err != nil {
			// Connectivity class: no response received.
			lastErr = err
			if attempt < maxAttempts {
				c.logger.Warn("send failed, retrying once", "recipient", recipientID, "error", err)
				continue
			}
			break
		}

		outcome := c.readResponse(resp, recipientID)
		return outcome
	}

	return failure(fmt.Sprintf("send failed after %d attempts: %s", maxAttempts, lastErr))
}

// readResponse classifies a received response. Any non-2xx status is
// permanent for this event, including 5xx — only the no-response class is
// retry-eligible.
func (c *Client) readResponse(resp *http.Response, recipientID string) domain.DeliveryOutcome {
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var parsed sendResponse
		detail := string(respBody)
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != nil {
			detail = fmt.Sprintf("%s (type=%s, code=%d)", parsed.Error.Message, parsed.Error.Type, parsed.Error.Code)
		}
		return failure(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, detail))
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return failure(fmt.Sprintf("decode response: %s", err))
	}

	c.logger.Debug("reply delivered", "recipient", recipientID, "message_id", parsed.MessageID)
	return domain.DeliveryOutcome{
		Delivered:         true,
		ExternalMessageID: parsed.MessageID,
	}
}

// Healthy checks that the access token is accepted by the platform.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/me", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("platform not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("platform: access token rejected")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("platform returned %d", resp.StatusCode)
	}
	return nil
}

func failure(detail string) domain.DeliveryOutcome {
	return domain.DeliveryOutcome{Delivered: false, Error: detail}
}
