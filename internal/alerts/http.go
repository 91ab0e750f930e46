package alerts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// doRequest performs one delivery attempt and folds transport-level failures
// into short human-readable errors suitable for a Notification error field.
func doRequest(ctx context.Context, c *http.Client, method, rawURL string, headers map[string]string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("invalid request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		var uerr *url.Error
		var nerr net.Error
		switch {
		case errors.Is(err, context.DeadlineExceeded),
			errors.As(err, &nerr) && nerr.Timeout(),
			errors.As(err, &uerr) && uerr.Timeout():
			return errors.New("connection timed out")
		default:
			return errors.New("connection failed")
		}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("received status code %d", resp.StatusCode)
	}
	return nil
}

func postJSON(ctx context.Context, c *http.Client, rawURL string, headers map[string]string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("invalid payload: %v", err)
	}
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	return doRequest(ctx, c, http.MethodPost, rawURL, h, bytes.NewReader(b))
}

func postForm(ctx context.Context, c *http.Client, rawURL string, headers map[string]string, form url.Values) error {
	h := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	for k, v := range headers {
		h[k] = v
	}
	return doRequest(ctx, c, http.MethodPost, rawURL, h, strings.NewReader(form.Encode()))
}

func basicAuth(user, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
}
