package domain

import "errors"

// File API errors
var (
	// ErrNotFound indicates the requested path or entity does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a path with that name already exists,
	// possibly marked as deleted
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrPermissionDenied indicates insufficient access rights
	ErrPermissionDenied = errors.New("permission denied")

	// ErrBadRequest indicates the backend rejected the request as invalid
	ErrBadRequest = errors.New("bad request")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrReadOnly indicates a write operation on a read-only storage
	ErrReadOnly = errors.New("storage is read-only")

	// ErrNetworkError indicates a network-related failure
	ErrNetworkError = errors.New("network error")

	// ErrTimeout indicates the backend or the client deadline expired
	ErrTimeout = errors.New("operation timed out")
)

// Validation errors
var (
	// ErrInvalidFileName indicates a name that cannot be used for a file or directory
	ErrInvalidFileName = errors.New("invalid file name")

	// ErrInvalidType indicates a linked entity type not allowed at the given level
	ErrInvalidType = errors.New("invalid linked entity type")

	// ErrUnknownType indicates a type IRI the vocabulary has no shape for
	ErrUnknownType = errors.New("unknown type")
)

// Vocabulary errors
var (
	// ErrVocabularyUnavailable indicates the vocabulary could not be fetched
	ErrVocabularyUnavailable = errors.New("vocabulary unavailable")

	// ErrHierarchyUnavailable indicates no hierarchy configuration is loaded
	ErrHierarchyUnavailable = errors.New("hierarchy unavailable")
)

// Operation errors
var (
	// ErrOperationInProgress indicates another file operation is still active
	ErrOperationInProgress = errors.New("file operation already in progress")

	// ErrOperationDisabled indicates the operation is not allowed in the current state
	ErrOperationDisabled = errors.New("operation not allowed")

	// ErrClipboardEmpty indicates a paste with nothing on the clipboard
	ErrClipboardEmpty = errors.New("clipboard is empty")
)

// Config errors
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")

	// ErrStorageNotFound indicates a referenced storage doesn't exist
	ErrStorageNotFound = errors.New("storage not found")
)
