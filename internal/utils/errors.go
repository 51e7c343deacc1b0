package utils

import (
	"errors"
	"fmt"
)

// ErrorWithSuggestion wraps an error with a user-friendly suggestion.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface.
func (e *ErrorWithSuggestion) Error() string {
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// Unwrap returns the underlying error for error chain support.
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WrapWithSuggestion wraps an existing error with a suggestion.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// Sentinel errors for conditions callers branch on with errors.Is.
var (
	// ErrUndoExpired is returned when undo is requested after the grace
	// window elapsed.
	ErrUndoExpired = errors.New("undo window expired")

	// ErrEmptyTitle is returned when a task is added or edited with an
	// empty title.
	ErrEmptyTitle = errors.New("task title cannot be empty")
)

// ErrTitleRequired returns the empty-title error with a suggestion.
func ErrTitleRequired() error {
	return &ErrorWithSuggestion{
		Err:        ErrEmptyTitle,
		Suggestion: "Provide a non-empty title, e.g. 'daylist add \"Buy milk\"'",
	}
}

// ErrTaskNotFound returns an error for when a task is not found.
func ErrTaskNotFound(searchTerm string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("task not found: %s", searchTerm),
		Suggestion: "Check the title or run 'daylist list --all' to see every active task",
	}
}

// ErrSubTaskNotFound returns an error for when a subtask is not found.
func ErrSubTaskNotFound(searchTerm string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("subtask not found: %s", searchTerm),
		Suggestion: "Check the subtask text or run 'daylist list --all' to see checklists",
	}
}

// ErrNothingToUndo returns an error when no deletion is pending undo.
func ErrNothingToUndo() error {
	return &ErrorWithSuggestion{
		Err:        ErrUndoExpired,
		Suggestion: "Deletions can only be undone within a few seconds of 'daylist rm'",
	}
}

// ErrInvalidPriority returns an error for an invalid priority value.
func ErrInvalidPriority(priority string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid priority: %s", priority),
		Suggestion: "Priority must be one of: low, medium, high",
	}
}

// ErrStorageUnavailable returns an error for an inaccessible database.
// The in-memory session keeps working; the write is retried on the next
// mutation.
func ErrStorageUnavailable(cause error) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("storage unavailable: %w", cause),
		Suggestion: "Check that the database file is writable and the disk is not full",
	}
}
