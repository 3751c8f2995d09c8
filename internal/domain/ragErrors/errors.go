package ragErrors

import (
	"errors"
	"fmt"
)

var (
	ErrIndexCorruption = errors.New("vector index corrupted: repair the collection and re-ingest")
	ErrEmptyQuery      = errors.New("query is empty")
	ErrThinContent     = errors.New("page content too short")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrNoSeeds         = errors.New("at least one seed url is required")
	ErrSourceNotFound  = errors.New("source not found")
)

// FetchError is a single URL failing during a crawl. It never stops the other fetches.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type EmbeddingError struct {
	SourceID   string
	ChunkIndex int
	Err        error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding %s (chunk %d): %v", e.SourceID, e.ChunkIndex, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s failed: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// ModelUnavailableError means the provider cannot be reached or does not serve the model.
// Hint is safe to show to the caller.
type ModelUnavailableError struct {
	Provider string
	Model    string
	Hint     string
	Err      error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model %q unavailable on %s: %v", e.Model, e.Provider, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

func AsModelUnavailable(err error) (*ModelUnavailableError, bool) {
	var target *ModelUnavailableError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func IsIndexCorruption(err error) bool {
	return errors.Is(err, ErrIndexCorruption)
}
