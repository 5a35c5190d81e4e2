package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsTypeFollowsWrapping(t *testing.T) {
	base := InvalidParam("unit_cost_per_kg must be greater than 0")
	wrapped := fmt.Errorf("simulate: %w", base)

	if !IsType(wrapped, TypeInvalidParam) {
		t.Fatal("expected wrapped error to classify as INVALID_PARAM")
	}
	if IsType(stderrors.New("plain"), TypeInvalidParam) {
		t.Fatal("plain errors must not classify")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid param", err: InvalidParam("bad"), status: http.StatusBadRequest, code: "INVALID_PARAM"},
		{name: "parsing", err: Parsing("bad json", stderrors.New("eof")), status: http.StatusBadRequest, code: "PARSING_ERROR"},
		{name: "not found", err: NotFound("product", "SKU-1"), status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "storage", err: Storage("query", stderrors.New("down")), status: http.StatusInternalServerError, code: "STORAGE_ERROR"},
		{name: "foreign", err: stderrors.New("boom"), status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.status {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.status)
			}
			if got := Code(tt.err); got != tt.code {
				t.Errorf("Code = %s, want %s", got, tt.code)
			}
		})
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Storage("sum fixed costs", stderrors.New("connection refused"))
	want := "[STORAGE_ERROR] sum fixed costs: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !stderrors.Is(err, err.Cause) {
		t.Error("expected Unwrap to expose the cause")
	}
}

func TestWithContext(t *testing.T) {
	err := InvalidParam("bad margin").WithContext("target_margin_rate", "1.2")
	if err.Context["target_margin_rate"] != "1.2" {
		t.Errorf("context not recorded: %v", err.Context)
	}
}
