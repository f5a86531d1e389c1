package resolver

import "fmt"

// AmbiguityError is returned by Strict when the differ produced any
// ambiguity at all.
type AmbiguityError struct {
	Count int
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("strict resolver: %d ambiguous change(s) require manual resolution", e.Count)
}
