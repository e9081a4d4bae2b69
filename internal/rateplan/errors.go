package rateplan

import "fmt"

// SchemaError reports a structural validation failure in the rate-plan
// document: missing, duplicate or contradictory elements and attributes.
type SchemaError struct {
	msg string
}

func (e *SchemaError) Error() string { return e.msg }

func schemaErrorf(format string, args ...any) *SchemaError {
	return &SchemaError{msg: fmt.Sprintf(format, args...)}
}
