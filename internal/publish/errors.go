package publish

import (
	"errors"
	"fmt"
)

// ErrNotConfigured means the pinning credential is unset; publish fails
// fast before any network call.
var ErrNotConfigured = errors.New("publish: pinning credential is not configured")

// PublishError carries upstream diagnostics from a failed pinning upload.
type PublishError struct {
	Status int
	Body   string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("pin upload failed (%d): %s", e.Status, e.Body)
}
