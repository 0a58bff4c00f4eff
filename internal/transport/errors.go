package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
)

var (
	ErrNoProxyAddress    = errors.New("proxy enabled but no proxy address given")
	ErrUnsupportedScheme = errors.New("scheme can only be fetched through a GET proxy")
	ErrTunnelRefused     = errors.New("proxy refused to open tunnel")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrBadRedirect       = errors.New("redirect without usable Location")

	ErrTimeout        = errors.New("operation timed out")
	ErrNetworkProblem = errors.New("network-related error")
	ErrUnexpectedEOF  = errors.New("unexpected EOF")
	ErrUnknown        = errors.New("unknown error")

	ErrServerProblem       = errors.New("server error (5xx)")
	ErrTooManyRequests     = errors.New("too many requests (429)")
	ErrResourceNotFound    = errors.New("resource not found (404)")
	ErrAccessDenied        = errors.New("access denied (403)")
	ErrAuthentication      = errors.New("authentication required (401)")
	ErrProxyAuthentication = errors.New("proxy authentication required (407)")
	ErrGone                = errors.New("resource gone (410)")
	ErrRangeNotSatisfiable = errors.New("range not satisfiable (416)")
	ErrClientRequest       = errors.New("client error (4xx)")
)

// ClassifyHTTPError converts an HTTP status code into a sentinel error, or nil
// for anything below 400.
func ClassifyHTTPError(statusCode int) error {
	switch statusCode {
	case http.StatusNotFound:
		return ErrResourceNotFound
	case http.StatusForbidden:
		return ErrAccessDenied
	case http.StatusUnauthorized:
		return ErrAuthentication
	case http.StatusProxyAuthRequired:
		return ErrProxyAuthentication
	case http.StatusGone:
		return ErrGone
	case http.StatusRequestedRangeNotSatisfiable:
		return ErrRangeNotSatisfiable
	case http.StatusTooManyRequests:
		return ErrTooManyRequests
	default:
		switch {
		case statusCode >= http.StatusInternalServerError:
			return ErrServerProblem
		case statusCode >= http.StatusBadRequest:
			return ErrClientRequest
		default:
			return nil
		}
	}
}

// ClassifyError categorizes a dial or read failure into a sentinel error.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrUnexpectedEOF
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrTimeout
		}

		return ErrNetworkProblem
	}

	return ErrUnknown
}

func isRetryable(classified error) bool {
	return errors.Is(classified, ErrTimeout) ||
		errors.Is(classified, ErrNetworkProblem) ||
		errors.Is(classified, ErrUnexpectedEOF)
}
