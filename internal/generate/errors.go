package generate

import (
	"errors"
	"fmt"
	"strings"
)

// TransientKind names the two upstream failure classes worth retrying.
type TransientKind string

const (
	KindCapacityExhausted TransientKind = "capacity_exhausted"
	KindDeadlineExceeded  TransientKind = "deadline_exceeded"
)

// TransientError marks an upstream failure that may resolve on retry.
type TransientError struct {
	Kind TransientKind
	Err  error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// APIError is the structured error shape of the predict endpoint.
type APIError struct {
	Code    int
	Status  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("predict failed (%d %s): %s", e.Code, e.Status, e.Message)
}

// Classify wraps err in a TransientError when it looks like a capacity or
// deadline failure. Upstream error shapes vary, so a structured code check
// is backed by a case-insensitive substring match on the message.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var api *APIError
	if errors.As(err, &api) {
		switch {
		case api.Code == 429 || api.Status == "RESOURCE_EXHAUSTED":
			return &TransientError{Kind: KindCapacityExhausted, Err: err}
		case api.Code == 504 || api.Status == "DEADLINE_EXCEEDED":
			return &TransientError{Kind: KindDeadlineExceeded, Err: err}
		}
	}

	msg := strings.ToUpper(err.Error())
	switch {
	case strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return &TransientError{Kind: KindCapacityExhausted, Err: err}
	case strings.Contains(msg, "DEADLINE_EXCEEDED"):
		return &TransientError{Kind: KindDeadlineExceeded, Err: err}
	}
	return err
}

// KindOf reports the transient kind of err, if any.
func KindOf(err error) (TransientKind, bool) {
	var te *TransientError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}
