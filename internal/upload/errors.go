package upload

import "fmt"

// ErrorKind identifies why a batch or entry was refused.
type ErrorKind int

const (
	EmptyInput ErrorKind = iota + 1
	TooManyFiles
	FileTooLarge
	ExtensionRejected
	IndexOutOfRange
	MetadataUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case EmptyInput:
		return "EmptyInput"
	case TooManyFiles:
		return "TooManyFiles"
	case FileTooLarge:
		return "FileTooLarge"
	case ExtensionRejected:
		return "ExtensionRejected"
	case IndexOutOfRange:
		return "IndexOutOfRange"
	case MetadataUnavailable:
		return "MetadataUnavailable"
	default:
		return "Unknown"
	}
}

// Error is a non-fatal session error. Message is what the widget displays.
type Error struct {
	Kind    ErrorKind
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so the sentinels
// below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrEmptyInput          = &Error{Kind: EmptyInput, Message: "empty input"}
	ErrTooManyFiles        = &Error{Kind: TooManyFiles, Message: "too many files"}
	ErrFileTooLarge        = &Error{Kind: FileTooLarge, Message: "file too large"}
	ErrExtensionRejected   = &Error{Kind: ExtensionRejected, Message: "extension rejected"}
	ErrIndexOutOfRange     = &Error{Kind: IndexOutOfRange, Message: "index out of range"}
	ErrMetadataUnavailable = &Error{Kind: MetadataUnavailable, Message: "metadata unavailable"}
)

func errEmptyInput() *Error {
	return &Error{Kind: EmptyInput, Message: "Empty file input"}
}

func errTooManyFiles(limit int) *Error {
	return &Error{
		Kind:    TooManyFiles,
		Message: fmt.Sprintf("You cannot attach more than %d files", limit),
	}
}

func errFileTooLarge(entry FileEntry, limitMB int, custom string) *Error {
	msg := custom
	if msg == "" {
		msg = fmt.Sprintf("The size of files cannot exceed %dMb (%s)", limitMB, entry.Name)
	}
	return &Error{Kind: FileTooLarge, Path: entry.Path, Message: msg}
}

func errExtensionRejected(entry FileEntry) *Error {
	return &Error{
		Kind:    ExtensionRejected,
		Path:    entry.Path,
		Message: fmt.Sprintf("Extension .%s has been excluded (%s)", entry.NormalizedExtension(), entry.Name),
	}
}

func errIndexOutOfRange(index, length int) *Error {
	return &Error{
		Kind:    IndexOutOfRange,
		Message: fmt.Sprintf("item's index not found: %d (have %d)", index, length),
	}
}

// NewMetadataError wraps a resolver failure for path.
func NewMetadataError(path string, err error) *Error {
	return &Error{
		Kind:    MetadataUnavailable,
		Path:    path,
		Message: fmt.Sprintf("Cannot read %s: %v", path, err),
		Err:     err,
	}
}
