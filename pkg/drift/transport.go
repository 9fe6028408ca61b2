package drift

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrorBody is the error object of a failed envelope.
type ErrorBody struct {
	Message string          `json:"message"`
	Code    string          `json:"code,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

// envelope is the response shape shared by every endpoint. Data stays raw so
// a missing or null payload can be told apart from an empty one.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

// do performs one call and unwraps the envelope into T. The timer created for
// the call is released on every return path.
func do[T any](ctx context.Context, c *Client, op, method, path string, body any) (T, error) {
	var zero T

	start := time.Now()
	outcome := OutcomeNetworkError
	status := 0
	defer func() {
		elapsed := time.Since(start)
		c.metrics.observe(op, outcome, elapsed)
		c.logger.Debug("drift request",
			zap.String("operation", op),
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("outcome", outcome),
		)
	}()

	ctx, cancel := context.WithTimeoutCause(ctx, c.timeout, ErrTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("encoding %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return zero, fmt.Errorf("creating %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, c.callError(ctx, err, &outcome)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, c.callError(ctx, err, &outcome)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		outcome = OutcomeDecodeError
		return zero, &DecodeError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		outcome = OutcomeAPIError
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Message = env.Error.Message
			apiErr.Code = env.Error.Code
			apiErr.Details = env.Error.Details
		}
		return zero, apiErr
	}

	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		outcome = OutcomeDecodeError
		return zero, &DecodeError{StatusCode: resp.StatusCode, Err: ErrNoData}
	}
	var data T
	if err := json.Unmarshal(env.Data, &data); err != nil {
		outcome = OutcomeDecodeError
		return zero, &DecodeError{StatusCode: resp.StatusCode, Err: err}
	}

	outcome = OutcomeSuccess
	return data, nil
}

// callError tells the client's own timeout apart from every other failure to
// complete a call. Anything else is returned unchanged.
func (c *Client) callError(ctx context.Context, err error, outcome *string) error {
	if context.Cause(ctx) == ErrTimeout {
		*outcome = OutcomeTimeout
		return fmt.Errorf("%w after %s: %w", ErrTimeout, c.timeout, err)
	}
	*outcome = OutcomeNetworkError
	return err
}
