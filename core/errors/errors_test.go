package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	cause := stderrors.New("boom")
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, ""},
		{"plain error", cause, ""},
		{"new", New(CodeUnauthenticated, "missing token"), CodeUnauthenticated},
		{"wrap", Wrap(CodeUnavailable, "healthx.Check", cause), CodeUnavailable},
		{"fmt wrapped", fmt.Errorf("outer: %w", New(CodeInternal, "inner")), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(CodeInternal, "op", cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if !IsCode(err, CodeInternal) {
		t.Error("IsCode should match the wrapping code")
	}
	if IsCode(err, CodeUnavailable) {
		t.Error("IsCode should not match a different code")
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"msg only", New(CodeNotFound, "no such service"), "NOT_FOUND: no such service"},
		{"cause only", Wrap(CodeInternal, "op", stderrors.New("boom")), "INTERNAL: boom"},
		{"msg and cause", &E{Code: CodeUnavailable, Msg: "not serving", Err: stderrors.New("down")}, "UNAVAILABLE: not serving: down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CodeInvalidArgument, "bad field %q", "name")
	want := `INVALID_ARGUMENT: bad field "name"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
