package service

import "fmt"

// NotFoundError reports a missing resource by name and id
type NotFoundError struct {
	Resource string
	ID       int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Resource, e.ID)
}

// ValidationError reports rejected input
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// BusinessLogicError reports an operation that is well-formed but not
// allowed in the current state
type BusinessLogicError struct {
	Message string
}

func (e *BusinessLogicError) Error() string {
	return fmt.Sprintf("business logic error: %s", e.Message)
}

// ConflictError reports an operation that lost to a concurrent state
// change, such as transitioning an already-terminal campaign
type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("conflict: %s", e.Message)
	}
	return fmt.Sprintf("conflict with %s: %s", e.Resource, e.Message)
}
