package rpc

import (
	"errors"
	"fmt"
)

// Standard JSON-RPC and EIP-1193 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
	CodeUserRejected   = 4001
)

// Kind tells callers how an error came about.
type Kind int

const (
	// KindPropagated is any error raised outside the request validation
	// pipeline, passed through unchanged.
	KindPropagated Kind = iota
	KindInvalidParams
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalidParams:
		return "invalid_params"
	case KindConflict:
		return "conflict"
	default:
		return "propagated"
	}
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Kind    Kind   `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func InvalidParams(message string) *Error {
	return &Error{Code: CodeInvalidParams, Message: message, Kind: KindInvalidParams}
}

// Conflict reports a well-formed request that clashes with existing state.
// It keeps the internal error code used by wallets for this case.
func Conflict(message string, data any) *Error {
	return &Error{Code: CodeInternal, Message: message, Data: data, Kind: KindConflict}
}

func Internal(message string) *Error {
	return &Error{Code: CodeInternal, Message: message}
}

func MethodNotFound(method string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("The method %q does not exist / is not available.", method)}
}

func ParseError(message string) *Error {
	return &Error{Code: CodeParseError, Message: message}
}

func InvalidRequest(message string) *Error {
	return &Error{Code: CodeInvalidRequest, Message: message}
}

func UserRejected(message string) *Error {
	if message == "" {
		message = "User rejected the request."
	}
	return &Error{Code: CodeUserRejected, Message: message}
}

// AsError converts err into a JSON-RPC error object. Errors that are not
// *Error become internal errors carrying their message.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return Internal(err.Error())
}

// KindOf returns the kind of err. Foreign errors are KindPropagated.
func KindOf(err error) Kind {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Kind
	}
	return KindPropagated
}
