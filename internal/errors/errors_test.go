package errors

import (
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestAppErrorMessage(t *testing.T) {
	err := Wrap(fmt.Errorf("open manifest.yaml: no such file"), CATALOG_MISSING, "load catalog").
		WithMetadata("dir", "references")

	want := "[CATALOG_MISSING] load catalog map[dir:references] caused by: open manifest.yaml: no such file"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsCodeFollowsWrapping(t *testing.T) {
	err := fmt.Errorf("startup: %w", New(CONFIG_INVALID, "bad port"))
	if !IsCode(err, CONFIG_INVALID) {
		t.Error("IsCode should find a wrapped AppError")
	}
	if IsCode(err, INTERNAL) {
		t.Error("IsCode matched the wrong code")
	}
	if IsCode(fmt.Errorf("plain"), UNKNOWN) {
		t.Error("IsCode matched a plain error")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{New(UNAVAILABLE, "down"), true},
		{New(TIMEOUT, "slow"), true},
		{New(EMIT_REJECTED, "400"), false},
		{New(CATALOG_INVALID, "bad"), false},
		{fmt.Errorf("plain"), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestGRPCRoundTrip(t *testing.T) {
	orig := New(EMIT_REJECTED, "endpoint refused payload").WithMetadata("status", "422")

	st := orig.GRPCStatus()
	if st.Code() != codes.FailedPrecondition {
		t.Errorf("Code() = %v, want FailedPrecondition", st.Code())
	}

	got := FromGRPCError(st.Err())
	if got.Code != EMIT_REJECTED {
		t.Errorf("Code = %v, want EMIT_REJECTED", got.Code)
	}
	if got.Message != "endpoint refused payload" {
		t.Errorf("Message = %q", got.Message)
	}
	if got.Metadata["status"] != "422" {
		t.Errorf("Metadata = %v", got.Metadata)
	}
}

func TestFromGRPCErrorFallback(t *testing.T) {
	got := FromGRPCError(status.Error(codes.DeadlineExceeded, "slow"))
	if got.Code != TIMEOUT {
		t.Errorf("Code = %v, want TIMEOUT", got.Code)
	}

	plain := FromGRPCError(fmt.Errorf("boom"))
	if plain.Code != UNKNOWN || plain.Cause == nil {
		t.Errorf("FromGRPCError(plain) = %+v", plain)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(INVALID_ARGUMENT, "x"), http.StatusBadRequest},
		{New(FRAME_DECODE, "x"), http.StatusBadRequest},
		{New(NOT_FOUND, "x"), http.StatusNotFound},
		{New(UNAVAILABLE, "x"), http.StatusServiceUnavailable},
		{New(INTERNAL, "x"), http.StatusInternalServerError},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestParseCode(t *testing.T) {
	for c := range codeNames {
		if got := ParseCode(c.String()); got != c {
			t.Errorf("ParseCode(%q) = %v", c.String(), got)
		}
	}
	if got := ParseCode("NOPE"); got != UNKNOWN {
		t.Errorf("ParseCode(NOPE) = %v, want UNKNOWN", got)
	}
}
