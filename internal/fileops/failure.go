package fileops

import (
	"context"

	"github.com/Ning0612/mercury/internal/domain"
)

var failureMessages = map[domain.OperationCode]string{
	domain.OpPaste:    "An error occurred while pasting your contents",
	domain.OpMkdir:    "An error occurred while creating directory",
	domain.OpRename:   "An error occurred while renaming file or directory",
	domain.OpDelete:   "An error occurred while deleting file or directory",
	domain.OpUndelete: "An error occurred while undeleting file or directory",
}

// Failure is a failed file operation as presented to the user
type Failure struct {
	Op      Operation
	Message string

	// Detail is an optional longer explanation
	Detail string

	// Validation failures are caused by the input and cannot be retried
	Validation bool

	Err error

	// Retry re-invokes the failed operation with identical arguments.
	// It is nil for validation failures and never called automatically.
	Retry func(ctx context.Context) error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Message
	}
	return f.Message + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether the failure offers a retry
func (f *Failure) Retryable() bool {
	return f.Retry != nil
}
