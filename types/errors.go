package types

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Handlers switch on the kind
// structurally instead of matching error message substrings.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfigurationMissing
	KindInvalidInput
	KindExtractionFailure
	KindNoContent
	KindEmbeddingFailure
	KindEmbeddingQuota
	KindCompletionFailure
	KindCompletionQuota
)

func (k Kind) String() string {
	switch k {
	case KindConfigurationMissing:
		return "configuration_missing"
	case KindInvalidInput:
		return "invalid_input"
	case KindExtractionFailure:
		return "extraction_failure"
	case KindNoContent:
		return "no_content"
	case KindEmbeddingFailure:
		return "embedding_failure"
	case KindEmbeddingQuota:
		return "embedding_quota"
	case KindCompletionFailure:
		return "completion_failure"
	case KindCompletionQuota:
		return "completion_quota"
	}
	return "unknown"
}

// Quota reports whether the kind signals collaborator quota exhaustion.
func (k Kind) Quota() bool {
	return k == KindEmbeddingQuota || k == KindCompletionQuota
}

// Fault is a classified pipeline error. Message is safe to show to callers.
type Fault struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

func NewFault(kind Kind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

func WrapFault(kind Kind, message string, err error) *Fault {
	return &Fault{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the classification from an error chain.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}
