package errors

// IndexError provides specialized error handling for B-tree index operations:
// node decoding, descent, and the structural checks the introspection CLI
// runs over an index file. This structure extends the base error system with
// index-specific context while properly supporting method chaining through
// all base error methods.
type IndexError struct {
	// Embed the base error to inherit all standard error functionality
	// including error chaining, structured details, and error codes.
	*baseError

	// Identifies which key was being processed when the error occurred, in
	// its best-effort string form. Empty when the error isn't tied to one key.
	key string

	// Byte offset of the node or key record involved, if known.
	offset int64

	// Describes what B-tree operation was being performed when the error
	// occurred (e.g. "ReadNode", "Insert", "Delete", "Walk").
	operation string

	// Tree depth at which the error was detected, counting the root as 0.
	depth int
}

// NewIndexError creates a new index-specific error with the provided context.
// This constructor follows the same pattern as other error types in the system,
// taking a causing error, error code, and descriptive message.
func NewIndexError(err error, code ErrorCode, msg string) *IndexError {
	return &IndexError{
		baseError: NewBaseError(err, code, msg),
	}
}

// Override base error methods to return *IndexError instead of *baseError.

// WithMessage updates the error message while maintaining the IndexError type.
func (ie *IndexError) WithMessage(msg string) *IndexError {
	ie.baseError.WithMessage(msg)
	return ie
}

// WithCode sets the error code while preserving the IndexError type.
func (ie *IndexError) WithCode(code ErrorCode) *IndexError {
	ie.baseError.WithCode(code)
	return ie
}

// WithDetail adds contextual information while maintaining the IndexError type.
func (ie *IndexError) WithDetail(key string, value any) *IndexError {
	ie.baseError.WithDetail(key, value)
	return ie
}

// WithKey records which key was being processed when the error occurred.
func (ie *IndexError) WithKey(key string) *IndexError {
	ie.key = key
	return ie
}

// WithOffset records the node or key-record offset involved in the error.
func (ie *IndexError) WithOffset(offset int64) *IndexError {
	ie.offset = offset
	return ie
}

// WithOperation records what B-tree operation was being performed.
func (ie *IndexError) WithOperation(operation string) *IndexError {
	ie.operation = operation
	return ie
}

// WithDepth records the tree depth at which the error was detected.
func (ie *IndexError) WithDepth(depth int) *IndexError {
	ie.depth = depth
	return ie
}

// Key returns the key that was being processed when the error occurred.
func (ie *IndexError) Key() string {
	return ie.key
}

// Offset returns the node or key-record offset involved in the error.
func (ie *IndexError) Offset() int64 {
	return ie.offset
}

// Operation returns the name of the operation that was being performed.
func (ie *IndexError) Operation() string {
	return ie.operation
}

// Depth returns the tree depth at which the error was detected.
func (ie *IndexError) Depth() int {
	return ie.depth
}

// NewNodeCorruptionError creates an error for a B-tree node that fails a
// structural sanity check on decode (e.g. a slot count outside the node's
// fixed capacity), which can only mean the index file was corrupted on disk
// or by an incompatible writer.
func NewNodeCorruptionError(offset int64, operation string, cause error) *IndexError {
	return NewIndexError(cause, ErrorCodeIndexCorrupted, "index node failed structural validation").
		WithOffset(offset).
		WithOperation(operation).
		WithDetail("corruption_detected", true).
		WithDetail("recovery_required", true)
}
