package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/avasilkov/knowledge-retrieval/internal/infrastructure/resilience"
)

// HTTPStatusError preserves the upstream status code so the classifier can
// separate transient provider failures from bad requests.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ollama: %s", e.Status)
	}
	return fmt.Sprintf("ollama: %s: %s", e.Status, e.Body)
}

func classifyError(err error) resilience.Classification {
	if err == nil {
		return resilience.Classification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Classification{Retryable: false, RecordFailure: false}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return resilience.Classification{Retryable: true, RecordFailure: true}
		case statusErr.StatusCode >= 500:
			return resilience.Classification{Retryable: true, RecordFailure: true}
		default:
			// 4xx other than 429 means the request itself is wrong.
			return resilience.Classification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Classification{Retryable: true, RecordFailure: true}
	}

	return resilience.Classification{Retryable: true, RecordFailure: true}
}
