package migration

import (
	"errors"
	"fmt"
)

// Migration-specific error types for different failure scenarios
var (
	// ErrMalformedName indicates that a file name does not follow the migration naming convention
	ErrMalformedName = errors.New("malformed migration file name")

	// ErrSlotConflict indicates that two files claim the same role for one sequence number
	ErrSlotConflict = errors.New("duplicate migration role for sequence")

	// ErrCollision indicates that an artifact already exists at a target path
	ErrCollision = errors.New("migration artifact already exists")

	// ErrNameRequired indicates that a settings registration was requested without an identifier
	ErrNameRequired = errors.New("a settings identifier name is required")

	// ErrInvalidName indicates that a settings identifier cannot be turned into a file name
	ErrInvalidName = errors.New("invalid settings identifier name")
)

// MigrationError wraps catalog errors with the file and operation involved
type MigrationError struct {
	Sequence  int    // Sequence number, or -1 when unknown
	FilePath  string // Path of the offending file
	Operation string // Operation being performed (parse, group, etc.)
	Err       error  // Underlying error
}

// Error implements the error interface
func (e *MigrationError) Error() string {
	if e.Sequence >= 0 {
		return fmt.Sprintf("migration %03d (%s): %s: %v", e.Sequence, e.FilePath, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration error (%s): %s: %v", e.FilePath, e.Operation, e.Err)
}

// Unwrap returns the underlying error for error unwrapping
func (e *MigrationError) Unwrap() error {
	return e.Err
}

// NewMigrationError creates a new MigrationError with context
func NewMigrationError(sequence int, filePath, operation string, err error) *MigrationError {
	return &MigrationError{
		Sequence:  sequence,
		FilePath:  filePath,
		Operation: operation,
		Err:       err,
	}
}

// FileSystemError wraps file system related errors during catalog and generation operations
type FileSystemError struct {
	Path      string // File or directory path
	Operation string // File operation (read, create, link, etc.)
	Err       error  // Underlying error
}

// Error implements the error interface
func (e *FileSystemError) Error() string {
	return fmt.Sprintf("filesystem error during %s of %s: %v", e.Operation, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *FileSystemError) Unwrap() error {
	return e.Err
}

// NewFileSystemError creates a new FileSystemError
func NewFileSystemError(path, operation string, err error) *FileSystemError {
	return &FileSystemError{
		Path:      path,
		Operation: operation,
		Err:       err,
	}
}

// CollisionError reports a target path that was already taken when the
// generator tried to create it.
type CollisionError struct {
	Path string
	Err  error
}

func (e *CollisionError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, ErrCollision) {
		return fmt.Sprintf("%v: %s: %v", ErrCollision, e.Path, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrCollision, e.Path)
}

// Unwrap exposes both ErrCollision and the filesystem cause.
func (e *CollisionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCollision}
	}
	return []error{ErrCollision, e.Err}
}

// UsageError marks operator input that cannot be acted upon. It is reported
// to the operator rather than treated as an internal fault.
type UsageError struct {
	Field string
	Err   error
}

func (e *UsageError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// IsUsageError reports whether err is caused by operator input.
func IsUsageError(err error) bool {
	var uErr *UsageError
	return errors.As(err, &uErr)
}

// ErrorKind maps catalog and generation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case IsUsageError(err):
		return "usage"
	case errors.Is(err, ErrCollision):
		return "collision"
	case errors.Is(err, ErrSlotConflict):
		return "slot_conflict"
	case errors.Is(err, ErrMalformedName):
		return "malformed_name"
	}

	var fsErr *FileSystemError
	if errors.As(err, &fsErr) {
		return "filesystem"
	}
	return "internal"
}
