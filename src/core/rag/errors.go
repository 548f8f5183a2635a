package rag

import "errors"

var (
	// ErrUnsupportedFormat is returned when a document's type is not recognized
	// by the text extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrCorruptDocument is returned when a document cannot be parsed.
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrInvalidConfig is returned for structurally invalid pipeline parameters.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrModelUnavailable is returned when the model endpoint cannot be reached.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrCapabilityTimeout is returned when an embedding or generation call
	// exceeds its bounded wait.
	ErrCapabilityTimeout = errors.New("capability call timed out")

	// ErrStoreUnavailable is returned when underlying persistence is unreachable.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSessionBusy is returned when a generation is already running for the
	// requested session.
	ErrSessionBusy = errors.New("session busy")

	// ErrDocumentNotFound is returned when a document id is not registered.
	ErrDocumentNotFound = errors.New("document not found")
)

// IsTransient reports whether an error is worth retrying with backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrModelUnavailable) ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrCapabilityTimeout)
}
