// Package migerr defines the error taxonomy used across the migration core.
//
// Every error that crosses a component boundary is one of the kinds below,
// wrapped with fmt.Errorf("...: %w", ...) the way the rest of this codebase
// wraps errors, so callers can use errors.As to recover the kind and errors.Is
// to check against a specific sentinel.
package migerr

import "fmt"

// Kind tags an error with one of the taxonomy entries from the migration
// spec's error handling design.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindInvalidSchema       Kind = "invalid_schema"
	KindFeatureNotSupported Kind = "feature_not_supported"
	KindDialectMismatch     Kind = "dialect_mismatch"
	KindJournalDivergence   Kind = "journal_divergence"
	KindMigrationLockFailed Kind = "migration_lock_failed"
	KindDriverNotSupported  Kind = "driver_not_supported"
	KindInternal            Kind = "internal"
)

// Error is the concrete error type carried by every Kind-tagged failure.
type Error struct {
	Kind    Kind
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is supports errors.Is(err, migerr.InvalidInput) style checks against the
// zero-valued sentinels below (matched on Kind alone).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// Sentinels usable with errors.Is to test for a Kind without caring about
// the message.
var (
	InvalidInput        = &Error{Kind: KindInvalidInput}
	InvalidSchema       = &Error{Kind: KindInvalidSchema}
	FeatureNotSupported = &Error{Kind: KindFeatureNotSupported}
	DialectMismatch     = &Error{Kind: KindDialectMismatch}
	JournalDivergence   = &Error{Kind: KindJournalDivergence}
	MigrationLockFailed = &Error{Kind: KindMigrationLockFailed}
	DriverNotSupported  = &Error{Kind: KindDriverNotSupported}
	Internal            = &Error{Kind: KindInternal}
)

func InvalidInputf(format string, args ...any) *Error        { return newf(KindInvalidInput, format, args...) }
func InvalidSchemaf(format string, args ...any) *Error        { return newf(KindInvalidSchema, format, args...) }
func FeatureNotSupportedf(format string, args ...any) *Error  { return newf(KindFeatureNotSupported, format, args...) }
func DialectMismatchf(format string, args ...any) *Error      { return newf(KindDialectMismatch, format, args...) }
func JournalDivergencef(format string, args ...any) *Error    { return newf(KindJournalDivergence, format, args...) }
func MigrationLockFailedf(format string, args ...any) *Error  { return newf(KindMigrationLockFailed, format, args...) }
func DriverNotSupportedf(format string, args ...any) *Error   { return newf(KindDriverNotSupported, format, args...) }
func Internalf(format string, args ...any) *Error             { return newf(KindInternal, format, args...) }

func WrapInvalidInput(err error, format string, args ...any) *Error {
	return wrapf(KindInvalidInput, err, format, args...)
}
func WrapInvalidSchema(err error, format string, args ...any) *Error {
	return wrapf(KindInvalidSchema, err, format, args...)
}
func WrapFeatureNotSupported(err error, format string, args ...any) *Error {
	return wrapf(KindFeatureNotSupported, err, format, args...)
}
func WrapDialectMismatch(err error, format string, args ...any) *Error {
	return wrapf(KindDialectMismatch, err, format, args...)
}
func WrapJournalDivergence(err error, format string, args ...any) *Error {
	return wrapf(KindJournalDivergence, err, format, args...)
}
func WrapMigrationLockFailed(err error, format string, args ...any) *Error {
	return wrapf(KindMigrationLockFailed, err, format, args...)
}
func WrapDriverNotSupported(err error, format string, args ...any) *Error {
	return wrapf(KindDriverNotSupported, err, format, args...)
}
func WrapInternal(err error, format string, args ...any) *Error {
	return wrapf(KindInternal, err, format, args...)
}
