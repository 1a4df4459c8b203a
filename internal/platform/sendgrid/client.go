package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/campus-backend/internal/platform/ctxutil"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

const (
	defaultBaseURL = "https://api.sendgrid.com"
	mailSendPath   = "/v3/mail/send"
	maxErrorBody   = 4000
)

// Client sends one transactional message per call. It does not retry; the
// deferred worker owns retries.
type Client interface {
	Send(ctx context.Context, req SendEmailRequest) (*SendEmailResult, error)
}

type Config struct {
	APIKey           string
	BaseURL          string
	DefaultFromEmail string
	DefaultFromName  string
	Timeout          time.Duration
}

type EmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type SendEmailRequest struct {
	From       EmailAddress
	To         []EmailAddress
	Subject    string
	Text       string
	HTML       string
	Categories []string
	CustomArgs map[string]string
}

type SendEmailResult struct {
	StatusCode int
	MessageID  string
}

type httpClient struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid: api key is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &httpClient{
		log:  log.With("client", "SendGrid"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *httpClient) Send(ctx context.Context, req SendEmailRequest) (*SendEmailResult, error) {
	body, err := c.payload(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.post(ctxutil.Default(ctx), body)
	if err != nil {
		return nil, err
	}
	return &SendEmailResult{
		StatusCode: resp.StatusCode,
		MessageID:  strings.TrimSpace(resp.Header.Get("X-Message-Id")),
	}, nil
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             EmailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
	Categories       []string          `json:"categories,omitempty"`
}

type personalization struct {
	To         []EmailAddress    `json:"to"`
	CustomArgs map[string]string `json:"custom_args,omitempty"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// payload fills the configured sender and checks the fields the API rejects.
func (c *httpClient) payload(req SendEmailRequest) (mailSendRequest, error) {
	from := EmailAddress{Email: strings.TrimSpace(req.From.Email), Name: strings.TrimSpace(req.From.Name)}
	if from.Email == "" {
		from = EmailAddress{Email: c.cfg.DefaultFromEmail, Name: c.cfg.DefaultFromName}
	}
	out := mailSendRequest{
		Personalizations: []personalization{{To: req.To, CustomArgs: req.CustomArgs}},
		From:             from,
		Subject:          strings.TrimSpace(req.Subject),
		Categories:       req.Categories,
	}
	if text := strings.TrimSpace(req.Text); text != "" {
		out.Content = append(out.Content, mailContent{Type: "text/plain", Value: text})
	}
	if html := strings.TrimSpace(req.HTML); html != "" {
		out.Content = append(out.Content, mailContent{Type: "text/html", Value: html})
	}
	switch {
	case out.From.Email == "":
		return out, errors.New("sendgrid: sender is required")
	case len(req.To) == 0:
		return out, errors.New("sendgrid: at least one recipient is required")
	case out.Subject == "":
		return out, errors.New("sendgrid: subject is required")
	case len(out.Content) == 0:
		return out, errors.New("sendgrid: text or html body is required")
	}
	return out, nil
}

func (c *httpClient) post(ctx context.Context, body mailSendRequest) (*http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("sendgrid: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+mailSendPath, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sendgrid: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode/100 != 2 {
		httpErr := decodeHTTPError(resp.StatusCode, respBody)
		c.log.Warn("SendGrid rejected message", "status", resp.StatusCode, "temporary", httpErr.Temporary())
		return nil, httpErr
	}
	return resp, nil
}

// HTTPError is a non-2xx answer from the API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, msg)
}

// Temporary reports whether the send may succeed if retried.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func decodeHTTPError(status int, body []byte) *HTTPError {
	var parsed struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	e := &HTTPError{StatusCode: status}
	if json.Unmarshal(body, &parsed) == nil && len(parsed.Errors) > 0 {
		e.Message = strings.TrimSpace(parsed.Errors[0].Message)
	} else {
		e.Message = strings.TrimSpace(string(body))
	}
	return e
}
