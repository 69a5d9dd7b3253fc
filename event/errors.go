package event

import "errors"

/* Error taxonomy for the pipeline
 * Fatal errors are surfaced with a specific HTTP status and never retried
 * Everything else raised by a handler is retryable by default
 */

var (
	// ErrMissingSignature indicates the signature header was absent
	ErrMissingSignature = errors.New("missing signature header")

	// ErrInvalidSignature indicates verification failed (tampered or foreign request)
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrEventNotSupported indicates no handler is registered for the event type
	ErrEventNotSupported = errors.New("event type not supported")

	// ErrProcessingTimeout indicates the handler exceeded the processing timeout
	ErrProcessingTimeout = errors.New("processing timeout")
)

// Fatal reports whether an error must never be retried.
func Fatal(err error) bool {
	return errors.Is(err, ErrMissingSignature) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrEventNotSupported)
}

// Retryable reports whether a processing error may enter the retry loop.
// Timeouts are retryable (the downstream dependency may recover) and so is
// any unclassified handler error.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return !Fatal(err)
}
