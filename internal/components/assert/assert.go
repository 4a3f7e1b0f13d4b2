// Package assert holds the preconditions constructors check before wiring
// a component together. A failed assertion is a programming error, so it
// panics instead of returning an error.
package assert

import "fmt"

func NotNil(value any, name string) {
	if value == nil {
		panic(fmt.Sprintf("expected %s to be not nil", name))
	}
}

func NotEmptyStr(str, name string) {
	if str == "" {
		panic(fmt.Sprintf("expected %s to be a non-empty string", name))
	}
}

func NonNegative(n int, name string) {
	if n < 0 {
		panic(fmt.Sprintf("expected %s to be >= 0, got %d", name, n))
	}
}
