package executor

import "fmt"

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// PartialError lets a resolver return a usable value alongside
// position-scoped errors. The Executor completes Value as the field result
// and records every element of Errors with its Path rebased onto the field's
// response path. Used by batch resolvers where one element's failure must not
// discard the rest of the batch.
type PartialError struct {
	Value  any
	Errors []GraphQLError
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("field resolved with %d error(s)", len(e.Errors))
}
