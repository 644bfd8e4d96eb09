package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/LeventeLantos/freesms-notify/internal/model"
)

const (
	DefaultBaseURL = "https://smsapi.free-mobile.fr/sendmsg"

	redactedURL = "<redacted>"
)

// FreeClient talks to the Free Mobile SMS API. It only reports the status
// code; interpreting it is left to the caller.
type FreeClient struct {
	baseURL string
	client  *http.Client
}

func NewFreeClient(baseURL string, timeout time.Duration) *FreeClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FreeClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *FreeClient) Send(ctx context.Context, creds model.Credentials, message string) (int, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return 0, fmt.Errorf("invalid base url %q: %w", c.baseURL, err)
	}

	q := u.Query()
	q.Set("user", creds.Username)
	q.Set("pass", creds.AccessToken)
	q.Set("msg", message)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, redact(err, creds.AccessToken)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// redact keeps the access token, which travels in the query string, out of
// transport errors since those end up in logs.
func redact(err error, token string) error {
	var uerr *url.Error
	if token == "" || !errors.As(err, &uerr) {
		return err
	}
	return fmt.Errorf("%s %s: %w", uerr.Op, redactedURL, uerr.Err)
}
