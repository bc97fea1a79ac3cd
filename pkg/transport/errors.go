package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
)

// ErrorCode classifies a transport failure.
type ErrorCode string

const (
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeCanceled          ErrorCode = "CANCELED"
	CodeConnectionRefused ErrorCode = "CONNECTION_REFUSED"
	CodeConnectionReset   ErrorCode = "CONNECTION_RESET"
	CodeDNS               ErrorCode = "DNS"
	CodeTLS               ErrorCode = "TLS"
	CodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	CodeNetwork           ErrorCode = "NETWORK"
)

// Error is a network or protocol level failure. HTTP error statuses are
// never reported as Error.
type Error struct {
	Code    ErrorCode
	Method  string
	URL     string
	Message string
	// Status is set when the failure happened after response headers arrived.
	Status int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s (%s)", e.Method, e.URL, e.Message, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a timeout.
func (e *Error) Timeout() bool {
	return e.Code == CodeTimeout
}

// CodeOf returns the transport error code carried by err, or "".
func CodeOf(err error) ErrorCode {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Code
	}
	return ""
}

func invalidRequest(method, rawURL string, err error) *Error {
	return &Error{Code: CodeInvalidRequest, Method: method, URL: rawURL, Message: err.Error(), Err: err}
}

// classify maps an error returned by http.Client.Do to a coded Error.
func classify(method, rawURL string, err error) *Error {
	e := &Error{Method: method, URL: rawURL, Err: err, Code: CodeNetwork}

	var (
		netErr  net.Error
		dnsErr  *net.DNSError
		urlErr  *url.Error
		certErr *tls.CertificateVerificationError
		authErr x509.UnknownAuthorityError
		hostErr x509.HostnameError
		recErr  tls.RecordHeaderError
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.Code = CodeTimeout
	case errors.Is(err, context.Canceled):
		e.Code = CodeCanceled
	case errors.As(err, &dnsErr):
		e.Code = CodeDNS
	case errors.Is(err, syscall.ECONNREFUSED):
		e.Code = CodeConnectionRefused
	case errors.Is(err, syscall.ECONNRESET):
		e.Code = CodeConnectionReset
	case errors.As(err, &certErr), errors.As(err, &authErr), errors.As(err, &hostErr), errors.As(err, &recErr):
		e.Code = CodeTLS
	case errors.As(err, &netErr) && netErr.Timeout():
		e.Code = CodeTimeout
	}

	e.Message = err.Error()
	if errors.As(err, &urlErr) {
		e.Message = urlErr.Err.Error()
	}
	return e
}
