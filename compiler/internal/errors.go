package internal

import (
	"fmt"
)

// ErrorKind classifies a fatal compilation error.
type ErrorKind int

const (
	LexicalError    ErrorKind = iota // illegal character, unterminated string or comment
	SyntaxError                      // token doesn't match the expected grammar continuation
	ResolutionError                  // identifier used as a storage location but not declared
)

func (kind ErrorKind) String() string {
	switch kind {
	case LexicalError:
		return "lexical"
	case SyntaxError:
		return "syntax"
	case ResolutionError:
		return "resolution"
	}
	return "unknown"
}

// CompileError is the only error the front-end reports for bad input. Compilation of
// the file stops at the first one.
type CompileError struct {
	Kind ErrorKind
	File string
	Line int
	Msg  string
}

func (err *CompileError) Error() string {
	file := err.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d: %s error: %s", file, err.Line, err.Kind, err.Msg)
}

func makeError(kind ErrorKind, line int, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...)}
}
