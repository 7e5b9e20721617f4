package llm

import "errors"

// Provider error codes. Providers map HTTP statuses and transport failures
// onto these; callers branch on them with the Is helpers or Code.
const (
	ErrCodeAuthentication = "authentication_error"
	ErrCodeRateLimit      = "rate_limit_exceeded"
	ErrCodeModelNotFound  = "model_not_found"
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeContextLength  = "context_length_exceeded"
	ErrCodeServerError    = "server_error"
	ErrCodeTimeout        = "timeout"
	ErrCodeNotConfigured  = "not_configured"
	ErrCodeToolLoop       = "tool_loop_exceeded"
)

// retryable codes may succeed on a second attempt.
var retryable = map[string]bool{
	ErrCodeRateLimit:   true,
	ErrCodeServerError: true,
	ErrCodeTimeout:     true,
}

// ProviderError is a classified provider failure.
type ProviderError struct {
	Code    string
	Message string
	Err     error // may be nil
}

func NewProviderError(code, message string, err error) *ProviderError {
	return &ProviderError{Code: code, Message: message, Err: err}
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Code returns the code of the first ProviderError in err's chain, or ""
// when there is none.
func Code(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

func IsAuthenticationError(err error) bool { return Code(err) == ErrCodeAuthentication }
func IsRateLimitError(err error) bool { return Code(err) == ErrCodeRateLimit }
func IsModelNotFoundError(err error) bool { return Code(err) == ErrCodeModelNotFound }
func IsContextLengthError(err error) bool { return Code(err) == ErrCodeContextLength }
func IsServerError(err error) bool { return Code(err) == ErrCodeServerError }
func IsTimeoutError(err error) bool { return Code(err) == ErrCodeTimeout }

// IsNotConfiguredError reports a provider without its key or model.
func IsNotConfiguredError(err error) bool { return Code(err) == ErrCodeNotConfigured }

// IsToolLoopError reports that tool-call rounds ran past the limit.
func IsToolLoopError(err error) bool { return Code(err) == ErrCodeToolLoop }

// IsRetryable reports a transient failure: rate limit, 5xx or timeout.
func IsRetryable(err error) bool { return retryable[Code(err)] }
