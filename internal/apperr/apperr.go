// Package apperr defines the application error taxonomy. Collaborator
// errors (index, blob store, extractor) are wrapped into one of these
// kinds before they cross a package boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes an application error.
type Kind string

const (
	KindInvalidFileType Kind = "invalid_file_type"
	KindInvalidQuery    Kind = "invalid_query"
	KindNotFound        Kind = "document_not_found"
	KindExtraction      Kind = "extraction_failure"
	KindIndexInit       Kind = "index_init_failure"
	KindIndexWrite      Kind = "index_write_failure"
	KindBlobStore       Kind = "blob_store_failure"
	KindSearch          Kind = "search_failure"
)

// Error is a structured application error carrying a Kind for
// status-code mapping at the HTTP boundary.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind with an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// InvalidFileType reports an upload that is not a PDF.
func InvalidFileType(message string) *Error {
	return &Error{Kind: KindInvalidFileType, Message: message}
}

// NotFound reports a missing document record.
func NotFound(id fmt.Stringer) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("document not found: %s", id)}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// HTTPStatus maps an error to a response status code. Unrecognized
// errors map to 500.
func HTTPStatus(err error) int {
	var ae *Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case KindInvalidFileType, KindInvalidQuery:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
