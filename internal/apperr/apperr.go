// Package apperr defines the coded errors returned by the API.
//
// Every failure that reaches a client carries an HTTP status and a stable
// machine-readable code so the SPA can branch on it (for example to show a
// localized "already purchased" message and refetch).
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, client-facing error identifier.
type Code string

const (
	CodeAuthRequired            Code = "AUTH_REQUIRED"
	CodeInvalidToken            Code = "INVALID_TOKEN"
	CodeAccountNotApproved      Code = "ACCOUNT_NOT_APPROVED"
	CodeInsufficientPermissions Code = "INSUFFICIENT_PERMISSIONS"
	CodePermissionDenied        Code = "PERMISSION_DENIED"
	CodeNotFound                Code = "NOT_FOUND"
	CodeInvalidArgument         Code = "INVALID_ARGUMENT"
	CodeInvalidAmount           Code = "INVALID_AMOUNT"
	CodeInvalidTargetUser       Code = "INVALID_TARGET_USER"
	CodeAlreadyPurchased        Code = "ALREADY_PURCHASED"
	CodeNotPurchased            Code = "NOT_PURCHASED"
	CodeTaskCompleted           Code = "TASK_COMPLETED"
	CodeCannotModifySelf        Code = "CANNOT_MODIFY_SELF"
	CodeEmailExists             Code = "EMAIL_EXISTS"
	CodeInvalidCredentials      Code = "INVALID_CREDENTIALS"
	CodeRateLimited             Code = "RATE_LIMITED"
	CodeServiceUnavailable      Code = "SERVICE_UNAVAILABLE"
	CodeInternal                Code = "INTERNAL"
)

// Error is an API error with an HTTP status and a code.
type Error struct {
	Status  int
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error.
func New(status int, code Code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Wrap creates an Error that keeps cause for logging. The cause is never
// sent to clients.
func Wrap(status int, code Code, message string, cause error) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: cause}
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, CodeNotFound, what+" not found")
}

func InvalidArgument(message string) *Error {
	return New(http.StatusBadRequest, CodeInvalidArgument, message)
}

func PermissionDenied(message string) *Error {
	return New(http.StatusForbidden, CodePermissionDenied, message)
}

func Unavailable(message string) *Error {
	return New(http.StatusServiceUnavailable, CodeServiceUnavailable, message)
}

func Internal(cause error) *Error {
	return Wrap(http.StatusInternalServerError, CodeInternal, "internal error", cause)
}

// From converts any error into an *Error. Errors that are not already coded
// become INTERNAL.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
