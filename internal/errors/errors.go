// Package errors provides unified error handling with stable error codes.
// Codes travel as the Reason of a google.rpc.ErrorInfo detail so clients of
// the HTTP and WebSocket surfaces see the same values as gRPC-style callers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/anypb"
)

// Domain is the ErrorInfo domain attached to every status.
const Domain = "kartalytics"

// ErrorCode is a stable, wire-visible error classification.
type ErrorCode int

const (
	UNKNOWN ErrorCode = iota
	INTERNAL
	INVALID_ARGUMENT
	NOT_FOUND
	UNAVAILABLE
	TIMEOUT
	CANCELLED
	CATALOG_MISSING
	CATALOG_INVALID
	FRAME_DECODE
	STREAM_FAILED
	EMIT_REJECTED
	CONFIG_INVALID
)

var codeNames = map[ErrorCode]string{
	UNKNOWN:          "UNKNOWN",
	INTERNAL:         "INTERNAL",
	INVALID_ARGUMENT: "INVALID_ARGUMENT",
	NOT_FOUND:        "NOT_FOUND",
	UNAVAILABLE:      "UNAVAILABLE",
	TIMEOUT:          "TIMEOUT",
	CANCELLED:        "CANCELLED",
	CATALOG_MISSING:  "CATALOG_MISSING",
	CATALOG_INVALID:  "CATALOG_INVALID",
	FRAME_DECODE:     "FRAME_DECODE",
	STREAM_FAILED:    "STREAM_FAILED",
	EMIT_REJECTED:    "EMIT_REJECTED",
	CONFIG_INVALID:   "CONFIG_INVALID",
}

func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// ParseCode is the inverse of String. Unrecognized names map to UNKNOWN.
func ParseCode(s string) ErrorCode {
	for c, name := range codeNames {
		if name == s {
			return c
		}
	}
	return UNKNOWN
}

// grpcCodeMap maps ErrorCode to gRPC status codes.
var grpcCodeMap = map[ErrorCode]codes.Code{
	UNKNOWN:          codes.Unknown,
	INTERNAL:         codes.Internal,
	INVALID_ARGUMENT: codes.InvalidArgument,
	NOT_FOUND:        codes.NotFound,
	UNAVAILABLE:      codes.Unavailable,
	TIMEOUT:          codes.DeadlineExceeded,
	CANCELLED:        codes.Canceled,
	CATALOG_MISSING:  codes.FailedPrecondition,
	CATALOG_INVALID:  codes.InvalidArgument,
	FRAME_DECODE:     codes.InvalidArgument,
	STREAM_FAILED:    codes.Unavailable,
	EMIT_REJECTED:    codes.FailedPrecondition,
	CONFIG_INVALID:   codes.InvalidArgument,
}

// httpCodeMap maps gRPC codes to HTTP statuses for the REST surface.
var httpCodeMap = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.NotFound:           http.StatusNotFound,
	codes.FailedPrecondition: http.StatusConflict,
	codes.Unavailable:        http.StatusServiceUnavailable,
	codes.DeadlineExceeded:   http.StatusGatewayTimeout,
	codes.Canceled:           499,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     ErrorCode
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// HTTPStatus returns the status code used when the error reaches an HTTP client.
func (e *AppError) HTTPStatus() int {
	if c, ok := httpCodeMap[e.GRPCCode()]; ok {
		return c
	}
	return http.StatusInternalServerError
}

// ToProto converts to an ErrorInfo detail.
func (e *AppError) ToProto() *errdetails.ErrorInfo {
	info := &errdetails.ErrorInfo{Reason: e.Code.String(), Domain: Domain}
	if len(e.Metadata) > 0 {
		info.Metadata = e.Metadata
	}
	return info
}

// GRPCStatus returns a gRPC status with the ErrorInfo attached.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Message)
	if withDetail, err := st.WithDetails(e.ToProto()); err == nil {
		st = withDetail
	}
	return st
}

// New creates a new AppError with the given code and message.
func New(code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// FromGRPCError extracts AppError from a status error if present.
func FromGRPCError(err error) *AppError {
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: UNKNOWN, Message: err.Error(), Cause: err}
	}

	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			if d.GetDomain() == Domain {
				return &AppError{Code: ParseCode(d.GetReason()), Message: st.Message(), Metadata: d.GetMetadata()}
			}
		case *anypb.Any:
			var info errdetails.ErrorInfo
			if d.UnmarshalTo(&info) == nil && info.GetDomain() == Domain {
				return &AppError{Code: ParseCode(info.GetReason()), Message: st.Message(), Metadata: info.GetMetadata()}
			}
		}
	}

	return &AppError{Code: grpcToErrorCode(st.Code()), Message: st.Message()}
}

// grpcToErrorCode maps gRPC codes back to our error codes (best effort).
func grpcToErrorCode(c codes.Code) ErrorCode {
	switch c {
	case codes.InvalidArgument:
		return INVALID_ARGUMENT
	case codes.NotFound:
		return NOT_FOUND
	case codes.Unavailable:
		return UNAVAILABLE
	case codes.DeadlineExceeded:
		return TIMEOUT
	case codes.Canceled:
		return CANCELLED
	case codes.Internal:
		return INTERNAL
	default:
		return UNKNOWN
	}
}

// IsCode checks if any error in the chain has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case UNAVAILABLE, TIMEOUT, STREAM_FAILED:
		return true
	default:
		return false
	}
}

// HTTPStatus maps any error to an HTTP status code.
func HTTPStatus(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}
