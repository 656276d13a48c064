package reply

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// StatusError reports a non-2xx answer from the reply endpoint.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reply endpoint: unexpected status %d", e.Code)
}

// Endpoint calls an HTTP function that takes the prompts as a JSON-encoded
// "message" query parameter and answers {"message": "..."}.
type Endpoint struct {
	url    string
	client *http.Client
}

func NewEndpoint(endpointURL string, timeout time.Duration) *Endpoint {
	return &Endpoint{url: endpointURL, client: &http.Client{Timeout: timeout}}
}

func (e *Endpoint) Ask(ctx context.Context, prompts []Prompt) (string, error) {
	payload, err := json.Marshal(prompts)
	if err != nil {
		return "", fmt.Errorf("encode prompts: %w", err)
	}

	u, err := url.Parse(e.url)
	if err != nil {
		return "", fmt.Errorf("parse endpoint url: %w", err)
	}
	q := u.Query()
	q.Set("message", string(payload))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reply endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", &StatusError{Code: resp.StatusCode}
	}

	var body struct {
		Message *string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode endpoint response: %w", err)
	}
	if body.Message == nil {
		return "", ErrEmptyReply
	}
	return *body.Message, nil
}
