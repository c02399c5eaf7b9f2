package config

import (
	"errors"
	"fmt"
)

// ValidationError accumulates every problem found while building or loading
// a Config so callers see all of them at once.
type ValidationError struct {
	Errors []error
}

func (v *ValidationError) Add(err error) {
	v.Errors = append(v.Errors, err)
}

func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationError) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	return fmt.Sprintf("%v", errors.Join(v.Errors...))
}
