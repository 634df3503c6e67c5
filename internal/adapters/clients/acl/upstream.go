package acl

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jsamuelsen/quotes-service/internal/adapters/clients"
	"github.com/jsamuelsen/quotes-service/internal/domain"
)

// upstream is the transport half shared by ACL adapters: it issues the
// request and turns every failure into a domain error.
type upstream struct {
	client *clients.Client
	name   string
}

// fetch GETs path and returns the body of a 2xx response. The caller closes
// it.
func (u upstream) fetch(ctx context.Context, path string, query url.Values, op string) (io.ReadCloser, error) {
	resp, err := u.client.Get(ctx, path, query)
	if err != nil {
		return nil, TranslateError(nil, err, u.name, op)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer func() { _ = resp.Body.Close() }()
		return nil, TranslateError(resp, nil, u.name, op)
	}

	return resp.Body, nil
}

// decodeJSON decodes body into a T and closes it.
func decodeJSON[T any](body io.ReadCloser) (T, error) {
	var out T

	if body == nil {
		return out, errors.New("response body is nil")
	}
	defer func() { _ = body.Close() }()

	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return out, fmt.Errorf("decoding response: %w", err)
	}

	return out, nil
}

// errorBody accepts the flat {statusCode, statusMessage} form quotable uses,
// a nested {error: {message}} form and a bare {message}.
type errorBody struct {
	StatusMessage string `json:"statusMessage"`
	Message       string `json:"message"`
	Error         struct {
		Message string `json:"message"`
	} `json:"error"`
}

// upstreamMessage extracts the provider's error text, or "" when the body
// has none.
func upstreamMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	var eb errorBody
	if err := json.NewDecoder(body).Decode(&eb); err != nil {
		return ""
	}

	return cmp.Or(eb.StatusMessage, eb.Error.Message, eb.Message)
}

// TranslateError maps an upstream failure to a domain error. Exactly one of
// resp and clientErr is expected; a 2xx resp yields nil.
//
// A misbehaving upstream is never the caller's fault, so everything except
// a 404 is domain.ErrUnavailable.
func TranslateError(resp *http.Response, clientErr error, service, op string) error {
	switch {
	case clientErr != nil:
		return domain.NewUnavailableError(service, clientReason(clientErr, op))
	case resp == nil:
		return domain.NewUnavailableError(service, "no response received")
	case resp.StatusCode < http.StatusMultipleChoices && resp.StatusCode >= http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewNotFoundError(service, op)
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewUnavailableError(service, "rate limit exceeded")
	}

	reason := upstreamMessage(resp.Body)
	if reason == "" {
		reason = fmt.Sprintf("%s failed with status %d", op, resp.StatusCode)
	}

	return domain.NewUnavailableError(service, reason)
}

func clientReason(err error, op string) string {
	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		return "circuit breaker open during " + op
	case errors.Is(err, clients.ErrMaxRetriesExceeded):
		return "max retries exceeded during " + op
	default:
		return fmt.Sprintf("%s failed: %v", op, err)
	}
}

// required rejects a blank upstream field.
func required(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return domain.NewValidationError(field, "is required")
	}

	return nil
}

// translateAll converts each upstream item with translate and drops the ones
// it rejects, reporting them to onReject when set.
func translateAll[E, D any](items []E, translate func(*E) (D, error), onReject func(i int, err error)) []D {
	out := make([]D, 0, len(items))

	for i := range items {
		d, err := translate(&items[i])
		if err != nil {
			if onReject != nil {
				onReject(i, err)
			}

			continue
		}

		out = append(out, d)
	}

	return out
}
