package vpk

import (
	"errors"
	"io/fs"
	"strconv"
)

// ErrorKind classifies every failure returned by this package. It is a closed
// enumeration; the zero value is never returned.
type ErrorKind uint8

const (
	NoFileProvided     ErrorKind = iota + 1 // load called without any blobs
	NoDirectory                             // no blob was classified as the directory
	DuplicateDirectory                      // more than one blob is named like a directory
	UnknownFilename                         // a blob is named like neither a directory nor an archive
	Uninitialized                           // no successful load yet
	FormatError                             // the directory blob is malformed
	FileNotFound                            // the file is not in the index
	InvalidArchive                          // the blob holding the file was never provided
	InternalError                           // fetching a blob or reading from it failed
)

var errorKindText = [...]string{
	NoFileProvided:     "no file provided",
	NoDirectory:        "no directory vpk provided",
	DuplicateDirectory: "duplicate directory vpk",
	UnknownFilename:    "unknown vpk filename",
	Uninitialized:      "vpk not loaded",
	FormatError:        "invalid vpk format",
	FileNotFound:       "file not found",
	InvalidArchive:     "vpk archive not provided",
	InternalError:      "internal error",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindText) && errorKindText[k] != "" {
		return errorKindText[k]
	}
	return "ErrorKind(" + strconv.Itoa(int(k)) + ")"
}

// Error implements error so kinds can be used as errors.Is targets.
func (k ErrorKind) Error() string {
	return k.String()
}

// Error is the error type returned by this package.
type Error struct {
	Kind ErrorKind
	Op   string // load, classify, parse, get, ...
	Name string // blob or file name, if relevant
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	s := "vpk: " + e.Op
	if e.Name != "" {
		s += " " + strconv.Quote(e.Name)
	}
	s += ": " + e.Kind.String()
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error's kind. FileNotFound also matches fs.ErrNotExist.
func (e *Error) Is(target error) bool {
	if k, ok := target.(ErrorKind); ok {
		return e.Kind == k
	}
	return target == fs.ErrNotExist && e.Kind == FileNotFound
}

// KindOf returns the kind of the first *Error in err's chain, or zero if there
// is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
