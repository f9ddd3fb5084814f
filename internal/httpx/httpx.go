// Package httpx holds the JSON-over-HTTP plumbing shared by providers that
// talk to REST APIs without an SDK.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/leofalp/aigoflow/internal/jsonx"
	"github.com/leofalp/aigoflow/providers/observability"
)

// maxResponseBodySize caps how much of a response body is ever read (10 MB).
const maxResponseBodySize int64 = 10 * 1024 * 1024

// Header is an extra request header. Headers are applied after the defaults
// and may override them.
type Header struct {
	Key   string
	Value string
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (err *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", err.StatusCode, err.Body)
}

// PostJSON sends body as JSON and decodes a 2xx response into Output. The
// response body is always read and closed.
func PostJSON[Output any](ctx context.Context, client *http.Client, url string, body any, headers ...Header) (*Output, error) {
	span := observability.SpanFromContext(ctx)

	response, err := post(ctx, client, url, body, "application/json", headers)
	if err != nil {
		return nil, err
	}
	defer CloseWithLog(response.Body)

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if span != nil {
		span.AddEvent(observability.EventHTTPResponse,
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Int(observability.AttrHTTPResponseBodySize, len(responseBody)),
		)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: response.StatusCode, Body: string(responseBody)}
	}

	var output Output
	if err := jsonx.Unmarshal(responseBody, &output); err != nil {
		return nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s",
			response.StatusCode, err, observability.TruncateString(string(responseBody), 500))
	}
	return &output, nil
}

// PostStream sends body as JSON asking for an event stream and returns the
// response with its body open. The caller must close the body. Non-2xx
// responses are drained, closed and returned as *StatusError.
func PostStream(ctx context.Context, client *http.Client, url string, body any, headers ...Header) (*http.Response, error) {
	response, err := post(ctx, client, url, body, "text/event-stream", headers)
	if err != nil {
		return nil, err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer CloseWithLog(response.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
		if readErr != nil {
			return nil, fmt.Errorf("non-2xx status %d (failed to read body: %v)", response.StatusCode, readErr)
		}
		return nil, &StatusError{StatusCode: response.StatusCode, Body: string(errorBody)}
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventHTTPStreamStarted,
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
		)
	}
	return response, nil
}

func post(ctx context.Context, client *http.Client, url string, body any, accept string, headers []Header) (*http.Response, error) {
	span := observability.SpanFromContext(ctx)

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := jsonx.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	if span != nil {
		span.AddEvent(observability.EventHTTPRequestPrepared,
			observability.String(observability.AttrHTTPMethod, http.MethodPost),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, len(jsonBody)),
		)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", accept)
	for _, header := range headers {
		request.Header.Set(header.Key, header.Value)
	}

	requestStart := time.Now()
	response, err := httpClient.Do(request)
	if err != nil {
		if span != nil {
			span.AddEvent(observability.EventHTTPRequestError,
				observability.Error(err),
				observability.Duration(observability.AttrDuration, time.Since(requestStart)),
			)
		}
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	return response, nil
}

// CloseWithLog closes closer and logs a failure instead of returning it.
func CloseWithLog(closer io.Closer) {
	if err := closer.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}
