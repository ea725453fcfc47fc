package federation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is the marker a reference resolver returns when the entity
// identified by a representation does not exist. It yields a null result
// without an error entry. Returning (nil, nil) is equivalent.
var ErrNotFound = errors.New("entity not found")

// ErrorKind classifies a per-representation resolution failure.
type ErrorKind string

const (
	KindMalformedRepresentation ErrorKind = "MALFORMED_REPRESENTATION"
	KindKeyMismatch             ErrorKind = "KEY_MISMATCH"
	KindUnresolvableType        ErrorKind = "UNRESOLVABLE_TYPE"
	KindResolverFailure         ErrorKind = "RESOLVER_FAILURE"
)

// EntityError is a position-scoped failure within an entity batch. The batch
// itself continues; the failed position resolves to null.
type EntityError struct {
	Kind     ErrorKind
	Index    int
	TypeName string
	Message  string
	Cause    error
}

func (e *EntityError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s at index %d", e.Kind, e.Index)
	if e.TypeName != "" {
		fmt.Fprintf(&b, " (%s)", e.TypeName)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *EntityError) Unwrap() error { return e.Cause }

// SchemaError reports an invalid key declaration found at startup.
type SchemaError struct {
	TypeName string
	FieldSet string
	Message  string
}

func (e *SchemaError) Error() string {
	if e.FieldSet != "" {
		return fmt.Sprintf("type %s, key %q: %s", e.TypeName, e.FieldSet, e.Message)
	}
	return fmt.Sprintf("type %s: %s", e.TypeName, e.Message)
}

// SchemaErrors aggregates every key declaration problem so all of them
// surface in one startup failure.
type SchemaErrors []*SchemaError

func (es SchemaErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("invalid entity key declarations: %s", strings.Join(msgs, "; "))
}
