package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrPageUnavailable is returned by Fetch once every attempt failed.
	ErrPageUnavailable = errors.New("scraper: page unavailable")
	// ErrCatalogUnavailable means the total item count could not be read.
	ErrCatalogUnavailable = errors.New("scraper: catalog size unavailable")
	// ErrInvalidOffset rejects offsets that are negative or not page aligned.
	ErrInvalidOffset = errors.New("scraper: invalid offset")
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrStatus is a non-success HTTP status from the API.
type ErrStatus struct {
	Code int
	Err  error
}

func (e ErrStatus) Error() string {
	return fmt.Sprintf("http status %d: %v", e.Code, e.Err)
}

func (e ErrStatus) Unwrap() error {
	return e.Err
}

// ErrDecode indicates a 2xx response whose body was not a product page.
type ErrDecode struct {
	Err error
}

func (e ErrDecode) Error() string {
	return fmt.Errorf("decode: %w", e.Err).Error()
}

func (e ErrDecode) Unwrap() error {
	return e.Err
}

// errorTypeLabel maps an attempt failure onto a metrics label. The retry
// loop itself treats every label the same way.
func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var decode ErrDecode
	if errors.As(err, &decode) {
		return "decode"
	}
	var status ErrStatus
	if errors.As(err, &status) {
		switch status.Code {
		case http.StatusForbidden:
			return "forbidden"
		case http.StatusNotFound:
			return "not_found"
		case http.StatusTooManyRequests:
			return "rate_limited"
		}
		if status.Code >= http.StatusInternalServerError {
			return "server_error"
		}
		return "client_error"
	}
	return "other"
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = errors.New(http.StatusText(statusCode))
		}
		return ErrStatus{Code: statusCode, Err: wrapped}
	}
	return err
}
