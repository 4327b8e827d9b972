package diag

import (
	"fmt"
)

// Code identifies the kind of a diagnostic. Each phase owns its own range:
// lexer 1000s, parser 2000s, semantic 3000s, I/O 9000s.
type Code uint16

const (
	// UnknownCode is the zero value; never raised deliberately.
	UnknownCode Code = 0

	// Lexical — Lexer.
	LexInfo               Code = 1000
	LexUnterminatedString Code = 1001
	LexInvalidNumber      Code = 1002
	LexUnknownChar        Code = 1003

	// Syntactic — Parser.
	SynInfo            Code = 2000
	SynUnexpectedToken Code = 2001
	SynExpectedToken   Code = 2002

	// Semantic — Binder.
	SemUnboundName Code = 3000

	// Semantic — TypeInferer.
	SemTypeMismatch           Code = 3100
	SemCannotInferMemberType  Code = 3101
	SemCannotInferArrayAccess Code = 3102
	SemUnknownField           Code = 3103
	SemAssignToImmutable      Code = 3104
	SemArityMismatch          Code = 3105
	SemPurityViolation        Code = 3106

	// Semantic — Monomorphizer.
	SemUnboundedGenericRecursion Code = 3200

	// I/O — driver (file discovery, loading, caching), not tied to one pass.
	IOLoadFileError Code = 9000
)

var codeDescription = map[Code]string{
	UnknownCode:                  "unknown error",
	LexInfo:                      "lexical information",
	LexUnterminatedString:        "string literal never closed before end of line or file",
	LexInvalidNumber:             "malformed numeric literal",
	LexUnknownChar:               "byte does not start any recognized token",
	SynInfo:                      "syntactic information",
	SynUnexpectedToken:           "token cannot start or continue the current production",
	SynExpectedToken:             "expected a specific token, found something else",
	SemUnboundName:               "identifier has no lexical binding",
	SemTypeMismatch:              "concrete types do not match a constraint",
	SemCannotInferMemberType:     "member access source type never resolved",
	SemCannotInferArrayAccess:    "array access source is not Array<_>",
	SemUnknownField:              "field name absent from struct",
	SemAssignToImmutable:         "assignment target is not mutable",
	SemArityMismatch:             "call arity does not match callee's declared arity",
	SemPurityViolation:           "pure function calls an impure or FunIO function",
	SemUnboundedGenericRecursion: "generic specialization chain strictly grows",
	IOLoadFileError:              "source file could not be read from disk",
}

// ID returns the stable, phase-prefixed identifier for the code, e.g. "SEM3000".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
