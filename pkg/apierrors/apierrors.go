// Package apierrors defines the typed error taxonomy from spec §7. Every
// component returns one of these (or wraps an upstream error with
// fmt.Errorf("...: %w", err)) rather than panicking on an expected
// failure path.
package apierrors

import (
	"fmt"
	"strings"
)

// Kind classifies a failure per the §7 error taxonomy and decides the
// caller's propagation policy (skip-and-continue, abort-task,
// rollback-to-savepoint, halt-dispatch, return-existing, or
// graceful-stop).
type Kind string

const (
	KindTransientRemote Kind = "transient_remote"
	KindLogicalInput    Kind = "logical_input"
	KindRowLocal        Kind = "row_local"
	KindQuotaExhausted  Kind = "quota_exhausted"
	KindConflict        Kind = "conflict"
	KindCancelled       Kind = "cancelled"
	KindTimedOut        Kind = "timed_out"
)

// Error is the typed error value returned across component boundaries.
type Error struct {
	kind    Kind
	code    int
	message string
	fields  Fields
}

// Fields carries structured context for logging, mirroring the teacher's
// api_errors.Fields.
type Fields map[string]interface{}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s/%d] %s", e.kind, e.code, strings.ToLower(e.message))
}

// Kind reports the error's taxonomy bucket.
func (e *Error) Kind() Kind { return e.kind }

// Code is a stable numeric identifier for this error definition.
func (e *Error) Code() int { return e.code }

// SetDetail appends formatted detail to the message and returns the
// receiver for chaining.
func (e *Error) SetDetail(format string, a ...any) *Error {
	detail := format
	if len(a) > 0 {
		detail = fmt.Sprintf(format, a...)
	}
	e.message = e.message + ": " + detail
	return e
}

// SetFields attaches structured context and returns the receiver.
func (e *Error) SetFields(f Fields) *Error {
	e.fields = f
	return e
}

// GetFields returns any structured context attached via SetFields.
func (e *Error) GetFields() Fields { return e.fields }

func define(kind Kind, code int, message string) func() *Error {
	return func() *Error {
		return &Error{kind: kind, code: code, message: message, fields: Fields{}}
	}
}

var (
	// Transient remote: HTTP timeout, 5xx from an external collaborator.
	// Policy: retry with backoff, then skip this item and continue the
	// batch (§7).
	ErrMediaServerUnreachable   = define(KindTransientRemote, 20100, "media server request failed")
	ErrMetadataProviderFailed   = define(KindTransientRemote, 20101, "metadata provider request failed")
	ErrDownloaderUnreachable    = define(KindTransientRemote, 20102, "downloader request failed")
	ErrNotificationSendFailed   = define(KindTransientRemote, 20103, "notification transport request failed")
	ErrTranslatorFailed         = define(KindTransientRemote, 20104, "translation provider request failed")

	// Logical input: fail the whole task, no partial work (§7).
	ErrMissingAPIKey        = define(KindLogicalInput, 20200, "required API key is not configured")
	ErrEmptyLibraryAllowlist = define(KindLogicalInput, 20201, "no library ids are configured for metadata sync")
	ErrInvalidDefinition    = define(KindLogicalInput, 20202, "collection definition is invalid")
	ErrExternalCollaboratorUnavailable = define(KindLogicalInput, 20203, "list source requires an unimplemented external collaborator")

	// Row-local corruption: rollback to savepoint, log, continue (§7).
	ErrRowConstraintViolation = define(KindRowLocal, 20300, "row violated a storage constraint")

	// Quota exhausted: halt further dispatches in the current task (§7).
	ErrQuotaExhausted = define(KindQuotaExhausted, 20400, "daily subscription quota is exhausted")

	// Conflict/duplicate: return existing status, never duplicate (§7).
	ErrSubscriptionAlreadyPending  = define(KindConflict, 20500, "subscription request already pending")
	ErrSubscriptionAlreadyApproved = define(KindConflict, 20501, "subscription request already approved")

	// Cancellation / timeout: graceful stop at the next boundary (§7).
	ErrTaskCancelled = define(KindCancelled, 20600, "task was cancelled")
	ErrTaskTimedOut  = define(KindTimedOut, 20601, "task chain exceeded its time budget")
	ErrSchedulerBusy = define(KindConflict, 20602, "scheduler is already running a task")
)
