package client

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeAuth indicates the controller rejected the credentials
	ErrTypeAuth
	// ErrTypeHTTP indicates an unexpected status code
	ErrTypeHTTP
	// ErrTypeParse indicates a response that could not be decoded
	ErrTypeParse
	// ErrTypeValidation indicates input rejected before or by the controller
	ErrTypeValidation
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing listens on the API port
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
)

var errorTypeNames = [...]string{
	ErrTypeNetwork:           "Network Error",
	ErrTypeAuth:              "Authentication Error",
	ErrTypeHTTP:              "HTTP Error",
	ErrTypeParse:             "Parse Error",
	ErrTypeValidation:        "Validation Error",
	ErrTypeTimeout:           "Timeout",
	ErrTypeConnectionRefused: "Connection Refused",
	ErrTypeDNS:               "DNS Error",
}

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	if et >= 0 && int(et) < len(errorTypeNames) {
		return errorTypeNames[et]
	}
	return fmt.Sprintf("ErrorType(%d)", et)
}

// DeviceError represents an error that occurred talking to a controller
type DeviceError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Body       string    // Response body of HTTP errors, trimmed
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether the error is retryable
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError turns a transport error into a DeviceError.
func ClassifyNetworkError(message string, err error) *DeviceError {
	if err == nil {
		return nil
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &DeviceError{Type: ErrTypeTimeout, Message: message, Err: err, Retryable: true}
	}
	if os.IsTimeout(err) {
		return &DeviceError{Type: ErrTypeTimeout, Message: message, Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &DeviceError{Type: ErrTypeDNS, Message: message, Err: err, Retryable: dnsErr.IsTemporary || dnsErr.IsTimeout}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &DeviceError{Type: ErrTypeConnectionRefused, Message: message, Err: err, Retryable: true}
	}

	return &DeviceError{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}
}

// NewAuthError creates an authentication error
func NewAuthError(message string) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeAuth,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewHTTPError creates an HTTP-level error. 5xx statuses are retryable;
// 503 is what a controller answers while starting or stopping.
func NewHTTPError(statusCode int, body string) *DeviceError {
	body = strings.TrimSpace(body)
	msg := fmt.Sprintf("unexpected status %d", statusCode)
	if body != "" {
		msg += ": " + body
	}

	typ := ErrTypeHTTP
	if statusCode == http.StatusBadRequest {
		typ = ErrTypeValidation
	}
	return &DeviceError{
		Type:       typ,
		Message:    msg,
		StatusCode: statusCode,
		Body:       body,
		Retryable:  statusCode >= 500,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *DeviceError {
	return &DeviceError{Type: ErrTypeParse, Message: message, Err: err}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *DeviceError {
	return &DeviceError{Type: ErrTypeValidation, Message: message}
}

func asDeviceError(err error) (*DeviceError, bool) {
	var devErr *DeviceError
	ok := errors.As(err, &devErr)
	return devErr, ok
}

func isType(err error, types ...ErrorType) bool {
	devErr, ok := asDeviceError(err)
	if !ok {
		return false
	}
	for _, t := range types {
		if devErr.Type == t {
			return true
		}
	}
	return false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	return isType(err, ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS)
}

func IsAuthError(err error) bool       { return isType(err, ErrTypeAuth) }
func IsHTTPError(err error) bool       { return isType(err, ErrTypeHTTP) }
func IsParseError(err error) bool      { return isType(err, ErrTypeParse) }
func IsValidationError(err error) bool { return isType(err, ErrTypeValidation) }

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	if devErr, ok := asDeviceError(err); ok {
		return devErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The controller did not respond in time.",
			"Troubleshooting:",
			"  • Check that the controller is powered on",
			"  • A controller in station mode may still be connecting; wait 30s",
			"  • Try increasing the timeout with --timeout",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The controller refused the connection.",
			"Troubleshooting:",
			"  • relayd may not be running - check the service status",
			"  • Verify the port number (default is 80)",
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the controller hostname.",
			"Troubleshooting:",
			"  • Use the IP address instead, or find it with: relayctl scan",
		}, "\n")

	case ErrTypeAuth:
		return strings.Join([]string{
			"Authentication failed.",
			"Troubleshooting:",
			"  • The default credentials are admin:remoterelay",
			"  • Send AT+RESTORE over serial or erase the settings to reset them",
		}, "\n")

	case ErrTypeHTTP:
		switch devErr.StatusCode {
		case http.StatusServiceUnavailable:
			return "The controller is starting, stopping or has its web service disabled."
		case http.StatusNotFound:
			return "The controller does not serve this route in its current mode, or the channel does not exist."
		case http.StatusBadGateway:
			return "The relay board did not accept the command. Check the serial link."
		}
		return fmt.Sprintf("The controller returned HTTP %d. Check the log with: relayctl log", devErr.StatusCode)

	case ErrTypeParse:
		return "Failed to parse the controller's response. Compare relayctl and relayd versions."

	case ErrTypeValidation:
		return "The values are invalid. Check the error message for details."

	default:
		return strings.Join([]string{
			"Network communication failed.",
			"Troubleshooting:",
			"  • Check your network connection",
			"  • Verify you're on the same network as the controller",
		}, "\n")
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return "Controller not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Controller refused connection - is relayd running?"
	case ErrTypeDNS:
		return "Cannot resolve controller hostname"
	case ErrTypeAuth:
		return "Authentication failed - check credentials"
	case ErrTypeNetwork:
		return "Network error - check connection"
	case ErrTypeHTTP:
		return fmt.Sprintf("Controller error (HTTP %d)", devErr.StatusCode)
	case ErrTypeParse:
		return "Failed to parse controller response"
	default:
		return devErr.Message
	}
}
