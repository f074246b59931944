package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInvalidState indicates that a workflow operation was attempted from a
// status other than its documented precondition.
var ErrInvalidState = errors.New("invalid request state")

// ErrForbidden indicates that the acting user does not hold the role
// required for the attempted operation.
var ErrForbidden = errors.New("operation not permitted for this user")

// ErrLockTimeout indicates that the advisory lock file on a JSON document
// could not be acquired within the configured timeout.
var ErrLockTimeout = errors.New("timed out waiting for document lock")

// ErrCorruptData indicates that a JSON document on disk could not be parsed.
// Callers decide whether to quarantine-and-reset or abort.
var ErrCorruptData = errors.New("stored document is corrupt")
