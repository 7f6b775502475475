package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPaymentDataMissing signals a creation request without payment proof:
// the provider or transaction id is absent, so nothing may be recorded.
var ErrPaymentDataMissing = errors.New("payment provider and transaction id are required")

// ValidationError enumerates every missing required field at once so the
// caller can fix the request in one pass. Shipping distinguishes the
// shipping-details field list from the top-level one.
type ValidationError struct {
	Fields   []string
	Shipping bool
}

func (e *ValidationError) Error() string {
	scope := "required fields"
	if e.Shipping {
		scope = "required shipping fields"
	}
	return fmt.Sprintf("missing %s: %s", scope, strings.Join(e.Fields, ", "))
}

// ForbiddenFieldError reports patch keys outside the mutable allow-list.
type ForbiddenFieldError struct {
	Fields []string
}

func (e *ForbiddenFieldError) Error() string {
	return fmt.Sprintf("fields not patchable: %s", strings.Join(e.Fields, ", "))
}
