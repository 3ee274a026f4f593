package service

import "fmt"

// ServiceError reports an unexpected failure of a service operation.
// Operation is a snake_case name such as "create_card".
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

func (e *ServiceError) Error() string {
	msg := e.Operation + ": " + e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ServiceError) Unwrap() error { return e.Err }

func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
