package properties

import (
	"fmt"

	"publisher/internal/faults"
)

// KeyError reports a read or delete of an absent key.
type KeyError struct {
	Key string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("property %q not found", e.Key)
}

func (e *KeyError) Unwrap() error { return faults.ErrNotFound }

// SerializationError reports a value that has no JSON-compatible form.
type SerializationError struct {
	Key   string
	Value any
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("property %q holds a value of type %T that cannot be serialized", e.Key, e.Value)
}

func (e *SerializationError) Unwrap() error { return faults.ErrSerialization }
