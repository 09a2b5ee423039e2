package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"testing"
)

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{
			name:      "url timeout",
			err:       &url.Error{Op: "Get", URL: "http://x", Err: os.ErrDeadlineExceeded},
			wantType:  ErrTypeTimeout,
			retryable: true,
		},
		{
			name:      "deadline",
			err:       os.ErrDeadlineExceeded,
			wantType:  ErrTypeTimeout,
			retryable: true,
		},
		{
			name:      "dns not found",
			err:       &net.DNSError{Err: "no such host", Name: "relay.local", IsNotFound: true},
			wantType:  ErrTypeDNS,
			retryable: false,
		},
		{
			name:      "dns temporary",
			err:       &net.DNSError{Err: "server misbehaving", Name: "relay.local", IsTemporary: true},
			wantType:  ErrTypeDNS,
			retryable: true,
		},
		{
			name:      "refused",
			err:       &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)},
			wantType:  ErrTypeConnectionRefused,
			retryable: true,
		},
		{
			name:      "other",
			err:       errors.New("connection reset"),
			wantType:  ErrTypeNetwork,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError("request failed", tt.err)
			if got.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.retryable)
			}
			if !errors.Is(got, tt.err) {
				t.Error("cause not reachable through Unwrap")
			}
			if !IsNetworkError(got) {
				t.Error("IsNetworkError() = false")
			}
		})
	}

	if ClassifyNetworkError("x", nil) != nil {
		t.Error("nil error classified")
	}
}

func TestNewHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		body      string
		wantType  ErrorType
		retryable bool
		wantMsg   string
	}{
		{http.StatusBadRequest, "Invalid parameters\r\n", ErrTypeValidation, false, "unexpected status 400: Invalid parameters"},
		{http.StatusNotFound, "Not found\r\n", ErrTypeHTTP, false, "Not found"},
		{http.StatusServiceUnavailable, "", ErrTypeHTTP, true, "unexpected status 503"},
		{http.StatusBadGateway, "relay write failed", ErrTypeHTTP, true, "502"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := NewHTTPError(tt.status, tt.body)
			if err.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", err.Type, tt.wantType)
			}
			if err.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", err.Retryable, tt.retryable)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Error() = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
			if err.StatusCode != tt.status {
				t.Errorf("StatusCode = %d", err.StatusCode)
			}
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	wrapped := fmt.Errorf("settings: %w", NewAuthError("denied"))
	if !IsAuthError(wrapped) {
		t.Error("IsAuthError() lost through wrapping")
	}
	if IsRetryable(wrapped) {
		t.Error("auth errors must not be retried")
	}
	if IsRetryable(context.Canceled) {
		t.Error("unknown errors must not be retried")
	}
	if !IsParseError(NewParseError("bad json", errors.New("eof"))) {
		t.Error("IsParseError() = false")
	}
	if IsHTTPError(NewValidationError("x")) {
		t.Error("validation error reported as HTTP error")
	}
	if ErrTypeDNS.String() != "DNS Error" || ErrorType(99).String() != "ErrorType(99)" {
		t.Error("ErrorType.String() mismatch")
	}
}

func TestGetTroubleshootingHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"auth", NewAuthError("denied"), "admin:remoterelay"},
		{"unavailable", NewHTTPError(http.StatusServiceUnavailable, ""), "starting, stopping"},
		{"not found", NewHTTPError(http.StatusNotFound, ""), "current mode"},
		{"bad gateway", NewHTTPError(http.StatusBadGateway, ""), "serial link"},
		{"other status", NewHTTPError(http.StatusTeapot, ""), "HTTP 418"},
		{"refused", &DeviceError{Type: ErrTypeConnectionRefused}, "relayd"},
		{"dns", &DeviceError{Type: ErrTypeDNS}, "relayctl scan"},
		{"plain", errors.New("x"), "unexpected error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetTroubleshootingHint(tt.err); !strings.Contains(got, tt.want) {
				t.Errorf("hint = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestGetShortErrorMessage(t *testing.T) {
	if got := GetShortErrorMessage(errors.New("plain")); got != "plain" {
		t.Errorf("plain error = %q", got)
	}
	if got := GetShortErrorMessage(&DeviceError{Type: ErrTypeTimeout}); got != "Controller not responding (timeout)" {
		t.Errorf("timeout = %q", got)
	}
}
