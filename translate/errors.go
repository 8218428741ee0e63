package translate

import "fmt"

// Document operations that can fail before any language is processed.
const (
	OpRead  = "read"
	OpParse = "parse"
)

// Output operations that can fail for one language of a document.
const (
	OpBuild = "build"
	OpWrite = "write"
)

// DocumentError reports a document that could not be read or parsed. It is
// fatal for that document only.
type DocumentError struct {
	Path string
	Op   string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// OutputError reports a failure producing one language's output for a
// document: a reconstruction conflict (OpBuild) or a write failure (OpWrite).
type OutputError struct {
	Path string
	Lang string
	Op   string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("%s %s [%s]: %v", e.Op, e.Path, e.Lang, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }
