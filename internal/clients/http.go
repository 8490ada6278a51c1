package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgerrors "github.com/pkg/errors"
)

const defaultTimeout = 5 * time.Second

// httpError carries the status code of a failed collaborator call
type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("collaborator returned status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether a collaborator call failed with 404
func IsNotFound(err error) bool {
	var he *httpError
	return pkgerrors.As(err, &he) && he.StatusCode == http.StatusNotFound
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// doJSON performs a JSON request and decodes the response into out.
// A nil body sends no payload; a nil out discards the response body.
func doJSON(ctx context.Context, client *http.Client, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode >= 400 {
		return &httpError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return pkgerrors.Wrap(err, "failed to parse response")
	}
	return nil
}
