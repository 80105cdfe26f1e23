package plugin

import (
	"fmt"
	"runtime/debug"

	"publisher/internal/faults"
)

// guard runs fn and converts a panic into an ErrHook error.
func guard(hook, member string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = faults.Wrap(faults.ErrHook, hook, member, fmt.Sprintf("panic: %v\n%s", r, debug.Stack()), nil)
		}
	}()
	return fn()
}
