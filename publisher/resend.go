package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/tidwall/gjson"
)

const defaultResendURL = "https://api.resend.com/"

// Message is one outgoing email.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// APIError is a non-2xx answer from the email API.
type APIError struct {
	Status  int
	Name    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("email api %d %s: %s", e.Status, e.Name, e.Message)
}

// IsTransient reports whether a send failure is worth retrying: rate limits,
// server errors, timeouts and dropped connections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// ResendClient sends through the Resend SDK.
type ResendClient struct {
	client *resend.Client
}

// NewResendClient builds a client. An empty baseURL means the public API.
func NewResendClient(apiKey, baseURL string, client *http.Client) (*ResendClient, error) {
	if apiKey == "" {
		return nil, errors.New("RESEND_API_KEY environment variable is required for email sending")
	}
	if baseURL == "" {
		baseURL = defaultResendURL
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("email base_url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	inner := client.Transport
	if inner == nil {
		inner = http.DefaultTransport
	}
	hc := *client
	hc.Transport = &failureRecorder{next: inner}

	rc := resend.NewCustomClient(&hc, apiKey)
	rc.BaseURL = base
	return &ResendClient{client: rc}, nil
}

// Send posts one message and returns the provider's message id.
func (c *ResendClient) Send(ctx context.Context, msg Message) (string, error) {
	ctx, fail := withFailure(ctx)
	sent, err := c.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return "", fail.wrap(err)
	}
	if sent == nil || sent.Id == "" {
		return "", errors.New("email api returned no message id")
	}
	return sent.Id, nil
}

// Ping lists sending domains, which only succeeds with a valid key.
func (c *ResendClient) Ping(ctx context.Context) error {
	ctx, fail := withFailure(ctx)
	if _, err := c.client.Domains.ListWithContext(ctx); err != nil {
		return fail.wrap(err)
	}
	return nil
}

// failure holds the last non-2xx response seen for one call. The SDK folds
// the status code into its error text, so the transport keeps it for us.
type failure struct {
	status int
	body   []byte
}

type failureKey struct{}

func withFailure(ctx context.Context) (context.Context, *failure) {
	f := &failure{}
	return context.WithValue(ctx, failureKey{}, f), f
}

func (f *failure) wrap(err error) error {
	if f.status == 0 {
		return err
	}
	apiErr := &APIError{Status: f.status, Message: strings.TrimSpace(string(f.body))}
	raw := string(f.body)
	if gjson.Valid(raw) {
		if msg := gjson.Get(raw, "message").String(); msg != "" {
			apiErr.Message = msg
		}
		apiErr.Name = gjson.Get(raw, "name").String()
	}
	if apiErr.Message == "" {
		apiErr.Message = err.Error()
	}
	return apiErr
}

type failureRecorder struct {
	next http.RoundTripper
}

func (t *failureRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode < 300 {
		return resp, err
	}
	f, ok := req.Context().Value(failureKey{}).(*failure)
	if !ok {
		return resp, nil
	}
	raw, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	f.status = resp.StatusCode
	f.body = raw
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	return resp, nil
}
