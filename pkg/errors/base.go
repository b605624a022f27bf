package errors

// baseError is the foundation every cinder error type builds on. It carries
// the original cause for unwrapping, a human-readable message, a code for
// programmatic handling, and an optional bag of structured details that
// flows into log output.
type baseError struct {
	cause   error          // The underlying error that triggered this one.
	message string         // Message shown to callers.
	code    ErrorCode      // Category for programmatic handling.
	details map[string]any // Extra context for logs: paths, offsets, thresholds.
}

// NewBaseError creates a baseError wrapping err with the given code and message.
func NewBaseError(err error, code ErrorCode, msg string) *baseError {
	return &baseError{cause: err, code: code, message: msg}
}

// WithMessage replaces the message. Useful when an error is constructed in
// one layer and contextualized in another.
func (be *baseError) WithMessage(msg string) *baseError {
	be.message = msg
	return be
}

// WithCode replaces the error code.
func (be *baseError) WithCode(code ErrorCode) *baseError {
	be.code = code
	return be
}

// WithDetail attaches a key-value pair of context. The details map is
// lazily allocated so errors without details stay cheap.
func (be *baseError) WithDetail(key string, value any) *baseError {
	if be.details == nil {
		be.details = make(map[string]any)
	}
	be.details[key] = value
	return be
}

// Error implements the error interface.
func (b *baseError) Error() string {
	return b.message
}

// Unwrap exposes the cause so errors.Is and errors.As work across the chain.
func (b *baseError) Unwrap() error {
	return b.cause
}

// Code returns the error's category code.
func (b *baseError) Code() ErrorCode {
	return b.code
}

// Details returns the attached context map. May be nil.
func (b *baseError) Details() map[string]any {
	return b.details
}
