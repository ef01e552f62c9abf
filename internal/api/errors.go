package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/Ning0612/mercury/internal/domain"
)

// maxErrorBody bounds the response body kept in a StatusError
const maxErrorBody = 1024

// StatusError is a non-successful HTTP response
type StatusError struct {
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (status %d)", e.kind, e.Code)
	}
	return fmt.Sprintf("%v (status %d): %s", e.kind, e.Code, e.Message)
}

// Unwrap returns the domain error for the status code
func (e *StatusError) Unwrap() error {
	return e.kind
}

// CheckResponse returns a StatusError for non-2xx responses. The body is
// not closed.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Code:    resp.StatusCode,
		Message: strings.TrimSpace(string(body)),
		kind:    statusKind(resp.StatusCode),
	}
}

func statusKind(code int) error {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrBadRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrPermissionDenied
	case http.StatusNotFound, http.StatusGone:
		return domain.ErrNotFound
	case http.StatusConflict, http.StatusPreconditionFailed:
		return domain.ErrAlreadyExists
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return domain.ErrTimeout
	}
	return domain.ErrNetworkError
}

// TransportError maps errors of the HTTP round trip. Cancellation by the
// caller is returned unchanged.
func TransportError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrNetworkError, err)
}
