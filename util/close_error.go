package util

import "io"

// Close closes c and hands any close error to the given handlers. Meant for
// deferred closes where the error cannot change the outcome but should still
// be observed (logged, counted).
func Close(c io.Closer, errorHandlers ...func(error)) {
	if err := c.Close(); err != nil {
		for _, f := range errorHandlers {
			f(err)
		}
	}
}
