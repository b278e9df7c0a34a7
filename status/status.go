// Package status defines the GQLSTATUS code constants used throughout the
// wire protocol runtime and the classification helpers built on top of them.
//
// A GQLSTATUS code is a 5-character SQLSTATE-style string. Its class — the
// first two characters — determines whether the code denotes success,
// a warning, no-data, an informational condition, or an exception.
package status

import "strings"

// Code is a 5-character GQLSTATUS code, e.g. "00000" or "42001".
type Code string

// Well-known codes used by the runtime. The table is not exhaustive of the
// GQL standard; it covers the codes this runtime produces or consumes.
const (
	Success             Code = "00000"
	Omitted             Code = "00001"
	NoData              Code = "02000"
	DataException       Code = "22000"
	InvalidTransaction  Code = "25000"
	ActiveTransaction   Code = "25G01"
	TransactionRollback Code = "40000"
	InvalidSyntax       Code = "42001"
)

// Class returns the first two characters of code, the classification key.
func Class(code Code) string {
	s := string(code)
	if len(s) < 2 {
		return s
	}
	return s[:2]
}

// IsSuccess reports whether code denotes success (class "00").
func IsSuccess(code Code) bool {
	return Class(code) == "00"
}

// IsWarning reports whether code denotes a warning (class "01").
func IsWarning(code Code) bool {
	return Class(code) == "01"
}

// IsNoData reports whether code denotes no-data (class "02").
func IsNoData(code Code) bool {
	return Class(code) == "02"
}

// IsInformational reports whether code denotes an informational condition
// (class "03").
func IsInformational(code Code) bool {
	return Class(code) == "03"
}

// IsException reports whether code denotes an exception: any class whose
// leading character is an ASCII letter, or any numeric class ≥ "08".
func IsException(code Code) bool {
	class := Class(code)
	if class == "" {
		return false
	}
	if isAlpha(class[0]) {
		return true
	}
	return class >= "08"
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// GqlStatus is the full status envelope accompanying GQL operations:
// a code, a human-readable message, optional diagnostic context, and an
// optional nested cause for chained failures.
type GqlStatus struct {
	Code       Code
	Message    string
	Diagnostic *Diagnostic
	Cause      *GqlStatus
}

// Diagnostic carries contextual detail about where a status originated.
type Diagnostic struct {
	Operation     string
	OperationCode string
	CurrentSchema string
}

// OK builds the canonical success status.
func OK() GqlStatus {
	return GqlStatus{Code: Success, Message: "success"}
}

// New builds a status with the given code and message.
func New(code Code, message string) GqlStatus {
	return GqlStatus{Code: code, Message: message}
}

// WithCause returns a copy of g with cause attached.
func (g GqlStatus) WithCause(cause GqlStatus) GqlStatus {
	g.Cause = &cause
	return g
}

// String renders a compact human-readable form, e.g. "42001: syntax error".
func (g GqlStatus) String() string {
	if g.Message == "" {
		return string(g.Code)
	}
	var b strings.Builder
	b.WriteString(string(g.Code))
	b.WriteString(": ")
	b.WriteString(g.Message)
	return b.String()
}
