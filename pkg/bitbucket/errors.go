package bitbucket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorType represents different categories of Bitbucket API errors
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "authentication"
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeServer     ErrorType = "server"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeDecode     ErrorType = "decode"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error represents a structured error from Bitbucket operations
type Error struct {
	Type       ErrorType     `json:"type"`
	Message    string        `json:"message"`
	Cause      error         `json:"-"`
	Resource   string        `json:"resource,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Retryable  bool          `json:"retryable"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s error for %s: %s", e.Type, e.Resource, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error is retryable
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a new Error with the specified type and message
func NewError(errorType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:      errorType,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryableErrorType(errorType),
	}
}

// errorFromResponse classifies a non-2xx response
func errorFromResponse(resp *http.Response, body []byte, resource string) *Error {
	baseErr := &Error{
		Resource:   resource,
		StatusCode: resp.StatusCode,
	}

	detail := apiErrorMessage(body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		baseErr.Type = ErrorTypeAuth
		baseErr.Message = "Authentication failed. Please check bitbucket_username and bitbucket_api_password"

	case http.StatusForbidden:
		baseErr.Type = ErrorTypePermission
		baseErr.Message = "Insufficient permissions. The API token needs the repository:read scope"

	case http.StatusNotFound:
		baseErr.Type = ErrorTypeNotFound
		baseErr.Message = "Workspace not found. Check the workspace name and your access permissions"

	case http.StatusTooManyRequests:
		baseErr.Type = ErrorTypeRateLimit
		baseErr.Message = "Bitbucket API rate limit exceeded. Please wait before retrying"
		baseErr.Retryable = true
		baseErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))

	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		baseErr.Type = ErrorTypeServer
		baseErr.Message = "Bitbucket API is temporarily unavailable. Please try again later"
		baseErr.Retryable = true

	default:
		baseErr.Type = ErrorTypeUnknown
		baseErr.Message = fmt.Sprintf("unexpected status %s", resp.Status)
		baseErr.Retryable = resp.StatusCode >= 500
	}

	if detail != "" {
		baseErr.Message = fmt.Sprintf("%s (%s)", baseErr.Message, detail)
	}

	return baseErr
}

// wrapTransportError classifies an error returned by the HTTP client itself
func wrapTransportError(err error, resource string) *Error {
	if errors.Is(err, context.Canceled) {
		return &Error{
			Type:     ErrorTypeUnknown,
			Message:  "request cancelled",
			Cause:    err,
			Resource: resource,
		}
	}

	if isNetworkError(err) {
		return &Error{
			Type:      ErrorTypeNetwork,
			Message:   "Network error occurred. Please check your connection and try again",
			Cause:     err,
			Resource:  resource,
			Retryable: true,
		}
	}

	return &Error{
		Type:     ErrorTypeUnknown,
		Message:  err.Error(),
		Cause:    err,
		Resource: resource,
	}
}

func apiErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}

	return strings.TrimSpace(envelope.Error.Message)
}

func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// isNetworkError checks if an error is a network-related error
func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"network is unreachable",
		"no such host",
		"timeout",
		"dial tcp",
		"i/o timeout",
		"eof",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// isRetryableErrorType determines if an error type is generally retryable
func isRetryableErrorType(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeRateLimit, ErrorTypeServer, ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// RetryConfig defines configuration for retry logic
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryableOperation represents an operation that can be retried
type RetryableOperation func() error

// WithRetry executes an operation with retry logic
func WithRetry(ctx context.Context, operation RetryableOperation, config *RetryConfig) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := delay

			// Honour the server's hint when it asks for longer
			var bbErr *Error
			if errors.As(lastErr, &bbErr) && bbErr.RetryAfter > wait {
				wait = minDuration(bbErr.RetryAfter, config.MaxDelay)
			}

			logrus.WithFields(logrus.Fields{
				"attempt": attempt,
				"delay":   wait,
			}).Debugf("retrying after error: %v", lastErr)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}

			delay = minDuration(time.Duration(float64(delay)*config.BackoffFactor), config.MaxDelay)
		}

		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		var bbErr *Error
		if !errors.As(err, &bbErr) || !bbErr.IsRetryable() {
			return err
		}
	}

	if config.MaxRetries == 0 {
		return lastErr
	}

	return fmt.Errorf("operation failed after %d retries: %w", config.MaxRetries, lastErr)
}

func minDuration(a, b time.Duration) time.Duration {
	if b > 0 && a > b {
		return b
	}
	return a
}
