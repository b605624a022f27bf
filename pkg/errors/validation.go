package errors

// ValidationError is the error type for rejected configuration and
// constructor input. It names the offending field, the rule it violated and
// what was provided, so a caller can correct the input without parsing the
// message.
type ValidationError struct {
	*baseError
	field    string // Which field or parameter failed validation.
	rule     string // Violated rule, e.g. "required", "positive", "bounds".
	provided any    // The value that was actually supplied.
}

// NewValidationError creates a validation-specific error.
func NewValidationError(err error, code ErrorCode, msg string) *ValidationError {
	return &ValidationError{baseError: NewBaseError(err, code, msg)}
}

// WithField names the field that failed validation.
func (ve *ValidationError) WithField(field string) *ValidationError {
	ve.field = field
	return ve
}

// WithRule names the rule that was violated.
func (ve *ValidationError) WithRule(rule string) *ValidationError {
	ve.rule = rule
	return ve
}

// WithProvided captures the rejected value.
func (ve *ValidationError) WithProvided(value any) *ValidationError {
	ve.provided = value
	return ve
}

// WithDetail attaches context while keeping the ValidationError type for chaining.
func (ve *ValidationError) WithDetail(key string, value any) *ValidationError {
	ve.baseError.WithDetail(key, value)
	return ve
}

// Field returns the field that failed validation.
func (ve *ValidationError) Field() string { return ve.field }

// Rule returns the rule that was violated.
func (ve *ValidationError) Rule() string { return ve.rule }

// Provided returns the rejected value.
func (ve *ValidationError) Provided() any { return ve.provided }
