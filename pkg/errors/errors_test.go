package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeConfig, "bucket not set")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Code != ErrCodeConfig {
		t.Errorf("expected code %s, got %s", ErrCodeConfig, err.Code)
	}
	if err.Message != "bucket not set" {
		t.Errorf("expected message 'bucket not set', got %s", err.Message)
	}
	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeUpload, "operation failed", cause)

	if err.Code != ErrCodeUpload {
		t.Errorf("expected code %s, got %s", ErrCodeUpload, err.Code)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be wrapped")
	}
}

func TestWrapWithContext(t *testing.T) {
	cause := errors.New("exit status 1")
	ctx := map[string]interface{}{
		"command": "skopeo",
		"image":   "alpine:3.18",
	}

	err := WrapWithContext(ErrCodeConversion, "image conversion failed", cause, ctx)

	if err.Code != ErrCodeConversion {
		t.Errorf("expected code %s, got %s", ErrCodeConversion, err.Code)
	}
	if err.Context == nil {
		t.Fatal("expected context to be set")
	}
	if err.Context["command"] != "skopeo" {
		t.Errorf("expected command to be skopeo")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      *StructuredError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(ErrCodeLayout, "index not found"),
			expected: "[LAYOUT] index not found",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeUpload, "failed", errors.New("root cause")),
			expected: "[UPLOAD] failed: root cause",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(ErrCodeInternal, "wrapper", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to match cause")
	}

	var se *StructuredError
	if !errors.As(err, &se) {
		t.Error("expected errors.As to match StructuredError")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{
			name: "structured error",
			err:  New(ErrCodeCancelled, "ctx done"),
			want: ErrCodeCancelled,
		},
		{
			name: "wrapped structured error",
			err:  fmt.Errorf("outer: %w", New(ErrCodeIntegrity, "size mismatch")),
			want: ErrCodeIntegrity,
		},
		{
			name: "plain error",
			err:  errors.New("plain"),
			want: ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := New(ErrCodeUpload, "retries exhausted")

	if !IsCode(err, ErrCodeUpload) {
		t.Error("expected IsCode to match UPLOAD")
	}
	if IsCode(err, ErrCodeLayout) {
		t.Error("expected IsCode not to match LAYOUT")
	}
	if IsCode(errors.New("plain"), ErrCodeUpload) {
		t.Error("expected IsCode to be false for plain error")
	}
}
