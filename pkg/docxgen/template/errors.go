package template

import (
	"fmt"
	"strings"
)

// ParseError represents an error while parsing template markers
type ParseError struct {
	Message  string
	Token    string
	Position int
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("parse error at position %d near '%s': %s", e.Position, e.Token, e.Message)
	}
	return fmt.Sprintf("parse error at position %d: %s", e.Position, e.Message)
}

// NewParseError creates a new parse error
func NewParseError(message, token string, position int) error {
	return &ParseError{
		Message:  message,
		Token:    token,
		Position: position,
	}
}

// EvaluationError represents an error during expression evaluation
type EvaluationError struct {
	Expression string
	Cause      error
}

func (e *EvaluationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluation error for expression '%s': %v", e.Expression, e.Cause)
	}
	return fmt.Sprintf("evaluation error for expression '%s'", e.Expression)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// NewEvaluationError creates a new evaluation error
func NewEvaluationError(expression string, cause error) error {
	return &EvaluationError{
		Expression: expression,
		Cause:      cause,
	}
}

// FunctionError represents an error raised by a template function. Cause
// keeps the callable's own error, which may carry a user-facing message.
type FunctionError struct {
	Function string
	Args     []interface{}
	Message  string
	Cause    error
}

func (e *FunctionError) Error() string {
	argsStr := make([]string, len(e.Args))
	for i, arg := range e.Args {
		argsStr[i] = summarize(arg)
	}
	return fmt.Sprintf("function error in '%s(%s)': %s", e.Function, strings.Join(argsStr, ", "), e.Message)
}

func (e *FunctionError) Unwrap() error {
	return e.Cause
}

// NewFunctionError creates a new function error
func NewFunctionError(function string, args []interface{}, cause error) error {
	return &FunctionError{
		Function: function,
		Args:     args,
		Message:  cause.Error(),
		Cause:    cause,
	}
}

// summarize keeps long arguments, such as whole markdown documents, out of
// error messages.
func summarize(arg interface{}) string {
	const max = 40
	s := fmt.Sprintf("%v", arg)
	if str, ok := arg.(string); ok {
		s = fmt.Sprintf("%q", str)
	}
	if r := []rune(s); len(r) > max {
		return string(r[:max]) + "..."
	}
	return s
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	_, ok := err.(*ParseError)
	return ok
}

// IsEvaluationError checks if an error is an evaluation error
func IsEvaluationError(err error) bool {
	_, ok := err.(*EvaluationError)
	return ok
}
