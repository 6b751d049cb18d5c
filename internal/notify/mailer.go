package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Attachment is one base64-encoded file on an outbound message.
type Attachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Type     string `json:"type"`
}

// Message is one outbound email. Content is already base64-encoded; the
// transport passes it through untouched.
type Message struct {
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Mailer is the email transport the dispatcher depends on. Each Send outcome
// is independent of any other message in flight.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPMailer sends messages through a Resend-compatible JSON API.
type HTTPMailer struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPMailer creates a mailer against baseURL with a bearer key.
func NewHTTPMailer(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPMailer {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPMailer{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (m *HTTPMailer) Send(ctx context.Context, msg Message) error {
	reqID := uuid.New().String()
	start := time.Now()

	bs, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error("mail.http.encode_error", "req_id", reqID, "error", err)
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(bs))
	if err != nil {
		m.logger.Error("mail.http.build_request_error", "req_id", reqID, "error", err)
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	m.logger.Info("mail.http.request",
		"req_id", reqID,
		"to", msg.To,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
		"content_length", len(bs),
	)

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Error("mail.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return err
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			m.logger.Warn("mail.http.response_body_close_error", "req_id", reqID, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	m.logger.Info("mail.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("mail transport returned status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
