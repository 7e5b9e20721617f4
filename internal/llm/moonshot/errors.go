package moonshot

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/axiom-ai/axiom/pkg/llm"
)

// statusError represents an HTTP error response from the Moonshot API.
type statusError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("moonshot: %d %s: %s", e.StatusCode, e.Type, e.Message)
}

// mapError translates Moonshot and network errors into typed llm.ProviderError values.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pe *llm.ProviderError
	if errors.As(err, &pe) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewProviderError(llm.ErrCodeTimeout, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return llm.NewProviderError(llm.ErrCodeInvalidRequest, "request cancelled", err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return llm.NewProviderError(llm.ErrCodeTimeout, "request timed out", err)
	}

	var se *statusError
	if errors.As(err, &se) {
		lower := strings.ToLower(se.Message)
		switch {
		case se.StatusCode == 401 || se.StatusCode == 403:
			return llm.NewProviderError(llm.ErrCodeAuthentication, se.Message, err)
		case se.StatusCode == 429:
			return llm.NewProviderError(llm.ErrCodeRateLimit, se.Message, err)
		case se.StatusCode == 404 && strings.Contains(lower, "model"):
			return llm.NewProviderError(llm.ErrCodeModelNotFound, se.Message, err)
		case strings.Contains(lower, "context length") || strings.Contains(lower, "exceeded model token limit"):
			return llm.NewProviderError(llm.ErrCodeContextLength, se.Message, err)
		case se.StatusCode >= 500:
			return llm.NewProviderError(llm.ErrCodeServerError, se.Message, err)
		case se.StatusCode >= 400:
			return llm.NewProviderError(llm.ErrCodeInvalidRequest, se.Message, err)
		}
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "dial tcp") {
		return llm.NewProviderError(llm.ErrCodeServerError, "moonshot server unreachable", err)
	}

	return llm.NewProviderError(llm.ErrCodeServerError, "moonshot error", err)
}
