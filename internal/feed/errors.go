package feed

import "fmt"

// RateLimitError is returned when the feed API kept answering 429 after the
// bounded retries were exhausted. The account can be retried on a later run.
type RateLimitError struct {
	Account  string
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("feed API rate limit exceeded for @%s after %d attempts", e.Account, e.Attempts)
}

// TransientError wraps a network failure or 5xx response that survived the
// retry budget. Safe to retry on a later run.
type TransientError struct {
	Account string
	Err     error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient feed error for @%s: %v", e.Account, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError is a non-retryable API rejection (unknown account, bad
// request). The account is skipped for the rest of the run.
type PermanentError struct {
	Account string
	Status  int
	Body    string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("feed API rejected request for @%s: status %d: %s", e.Account, e.Status, e.Body)
}
