package errutil

import (
	"errors"
	"fmt"
)

type Detail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type BaseError struct {
	Code    CoreStatus `json:"code"`
	Message string     `json:"message"`
	Details []Detail   `json:"details,omitempty"`
	Err     error      `json:"-"`

	// RemoteStatus is the http status returned by the loyalty service, if any.
	RemoteStatus int `json:"-"`
}

func (e BaseError) Unwrap() error {
	return e.Err
}

func (e BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.messageWithErr())
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e BaseError) messageWithErr() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

type Option func(*BaseError)

func WithDetails(details ...Detail) Option {
	return func(be *BaseError) { be.Details = details }
}

func WithErr(err error) Option {
	return func(be *BaseError) { be.Err = err }
}

func WithRemoteStatus(code int) Option {
	return func(be *BaseError) { be.RemoteStatus = code }
}

func New(code CoreStatus, message string, opts ...Option) error {
	be := BaseError{Code: code, Message: message}
	for _, opt := range opts {
		opt(&be)
	}
	return be
}

func NotFound(msg string, err error, options ...Option) error {
	return New(StatusNotFound, msg, append(options, WithErr(err))...)
}

func BadRequest(msg string, err error, options ...Option) error {
	return New(StatusBadRequest, msg, append(options, WithErr(err))...)
}

func Internal(msg string, err error, options ...Option) error {
	return New(StatusInternal, msg, append(options, WithErr(err))...)
}

// Validation reports malformed local input. It is raised before anything is sent over the wire.
func Validation(msg string, options ...Option) error {
	return New(StatusValidationFailed, msg, options...)
}

// Transport reports a network or authentication failure talking to the loyalty service.
func Transport(msg string, err error, options ...Option) error {
	return New(StatusTransport, msg, append(options, WithErr(err))...)
}

// Server reports a non-success status returned by the loyalty service.
func Server(msg string, remoteStatus int, options ...Option) error {
	return New(StatusServer, msg, append(options, WithRemoteStatus(remoteStatus))...)
}

// User carries a message that is safe to show to the customer.
func User(msg string, options ...Option) error {
	return New(StatusUser, msg, options...)
}

func Is(err error, code CoreStatus) bool {
	var be BaseError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

func IsValidation(err error) bool { return Is(err, StatusValidationFailed) }
func IsTransport(err error) bool  { return Is(err, StatusTransport) }
func IsServer(err error) bool     { return Is(err, StatusServer) }
func IsNotFound(err error) bool   { return Is(err, StatusNotFound) }
func IsUser(err error) bool       { return Is(err, StatusUser) }

// UserMessage returns the message of a UserError, or fallback for every other error.
func UserMessage(err error, fallback string) string {
	var be BaseError
	if errors.As(err, &be) && be.Code == StatusUser {
		return be.Message
	}
	return fallback
}
