package apollo

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
)

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 64 << 10

var errNullBody = errors.New("response body is null")

// post sends body as JSON to path and decodes a 200 response into out.
func (c *Client) post(ctx context.Context, op, path string, query QueryParams, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return c.fail(ctx, op, fmt.Errorf("marshal request: %w", err))
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(jsonData))
	if err != nil {
		return c.fail(ctx, op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	if c.debug {
		c.log.DebugContext(ctx, "Apollo request starting",
			"op", op,
			"url", reqURL,
			"bodyBytes", len(jsonData))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(ctx, op, &TransportError{Op: op, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.fail(ctx, op, &RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		})
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(ctx, op, &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)})
	}

	if bytes.Equal(bytes.TrimSpace(respBody), []byte("null")) {
		return c.fail(ctx, op, &DecodeError{Op: op, Err: errNullBody})
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return c.fail(ctx, op, &DecodeError{Op: op, Err: err})
	}

	if c.debug {
		c.log.DebugContext(ctx, "Apollo request completed",
			"op", op,
			"elapsed", time.Since(start),
			"responseBytes", len(respBody))
	}

	return nil
}

// fail reports err to the logger in debug mode and returns it unchanged.
func (c *Client) fail(ctx context.Context, op string, err error) error {
	if !c.debug {
		return err
	}

	attrs := []any{"op", op, "error", err}
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		attrs = append(attrs, "status", remoteErr.StatusCode)
	}
	c.log.ErrorContext(ctx, "Apollo request failed", attrs...)

	return err
}
