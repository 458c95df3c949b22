package utils

import (
	"fmt"
	"runtime/debug"
)

func genErr(e error, stack []byte) error {
	return fmt.Errorf("error: %v\nstack:\n%s", e, stack)
}

// Panic returns res, or panics with err and the current stack.
func Panic[T any](res T, err error) T {
	if err != nil {
		panic(genErr(err, debug.Stack()))
	}
	return res
}
