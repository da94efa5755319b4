// Package apperr defines the failure kinds surfaced by the ingestion and
// retrieval services. Each kind marks the port call that failed.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindStorageWrite  Kind = "storage_write"
	KindStorageRead   Kind = "storage_read"
	KindMetadataWrite Kind = "metadata_write"
	KindMetadataRead  Kind = "metadata_read"
	KindExtraction    Kind = "extraction"
	KindEmbedding     Kind = "embedding"
	KindIndexWrite    Kind = "index_write"
	KindIndexRead     Kind = "index_read"
	KindCompletion    Kind = "completion"
	KindInternal      Kind = "internal"
)

// Error is a classified failure. Stage optionally names the step of a
// multi-step operation that produced it.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Stage != "" {
		msg = fmt.Sprintf("%s (stage %s)", msg, e.Stage)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithStage returns a copy of e tagged with stage.
func (e *Error) WithStage(stage string) *Error {
	cp := *e
	cp.Stage = stage
	return &cp
}

// KindOf reports the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func StageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Stage
	}
	return ""
}
