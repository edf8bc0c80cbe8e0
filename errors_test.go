package lmm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

// TestSentinelErrors verifies that all sentinel errors are defined correctly.
func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "ErrInvalidConfig",
			err:  ErrInvalidConfig,
			want: "invalid configuration",
		},
		{
			name: "ErrStoreClosed",
			err:  ErrStoreClosed,
			want: "store is closed",
		},
		{
			name: "ErrStorageFailed",
			err:  ErrStorageFailed,
			want: "storage operation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("sentinel error %s is nil", tt.name)
			}
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("error message = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestErrorError verifies the Error() method formatting.
func TestErrorError(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "basic error",
			err: &Error{
				Op:   "neo4jstore.AppendDelta",
				Kind: KindStorage,
				Err:  ErrStorageFailed,
			},
			want: "lmm: neo4jstore.AppendDelta (storage): storage operation failed",
		},
		{
			name: "no underlying error",
			err: &Error{
				Op:   "neo4jstore.New",
				Kind: KindConnection,
			},
			want: "lmm: neo4jstore.New: connection",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestErrorUnwrap verifies error unwrapping works with errors.Is.
func TestErrorUnwrap(t *testing.T) {
	base := fmt.Errorf("connection refused")
	err := NewConnectionError("neo4jstore.New", fmt.Errorf("verify connectivity: %w", base))

	if !errors.Is(err, base) {
		t.Error("expected errors.Is to match the wrapped base error")
	}

	var structured *Error
	if !errors.As(err, &structured) {
		t.Fatal("expected errors.As to extract *Error")
	}
	if structured.Kind != KindConnection {
		t.Errorf("Kind = %q, want %q", structured.Kind, KindConnection)
	}
}

// TestErrorIs verifies kind-based matching between structured errors.
func TestErrorIs(t *testing.T) {
	err := NewStorageError("neo4jstore.CommitKnot", errors.New("constraint violated"))

	// Kind-only target matches any op.
	if !errors.Is(err, &Error{Kind: KindStorage}) {
		t.Error("expected kind-only match")
	}

	// Kind and op must both match when op is set on the target.
	if errors.Is(err, &Error{Kind: KindStorage, Op: "neo4jstore.AppendDelta"}) {
		t.Error("expected mismatch on differing op")
	}

	// Sentinel still matches through the wrapper.
	if !errors.Is(err, ErrStorageFailed) {
		t.Error("expected sentinel match through wrapper")
	}
}

// TestConstructorHelpers verifies the New*Error constructors set the right kind.
func TestConstructorHelpers(t *testing.T) {
	cases := []struct {
		err  *Error
		kind string
	}{
		{NewConnectionError("op", nil), KindConnection},
		{NewStorageError("op", nil), KindStorage},
		{NewConfigurationError("op", nil), KindConfiguration},
	}

	for _, c := range cases {
		if c.err.Kind != c.kind {
			t.Errorf("kind = %q, want %q", c.err.Kind, c.kind)
		}
		if !strings.Contains(c.err.Error(), c.kind) {
			t.Errorf("Error() %q should mention kind %q", c.err.Error(), c.kind)
		}
	}
}

// TestStorageErrorWrapsSentinel verifies storage errors match both
// ErrStorageFailed and the engine's cause.
func TestStorageErrorWrapsSentinel(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := NewStorageError("neo4jstore.AppendDelta", cause)

	if !errors.Is(err, ErrStorageFailed) {
		t.Error("expected errors.Is(err, ErrStorageFailed)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is(err, cause)")
	}

	if !errors.Is(NewStorageError("op", nil), ErrStorageFailed) {
		t.Error("expected nil-cause storage error to match ErrStorageFailed")
	}

	if NewInternalError("op", cause).Kind != KindInternal {
		t.Error("expected KindInternal")
	}
}

type fakeCloser struct {
	err    error
	closed bool
}

func (f *fakeCloser) Close(context.Context) error {
	f.closed = true
	return f.err
}

// TestCloseWithLog verifies the deferred-close helper tolerates nil
// closers and logs (rather than returns) close failures.
func TestCloseWithLog(t *testing.T) {
	ctx := context.Background()
	CloseWithLog(ctx, nil, nil, "absent")

	ok := &fakeCloser{}
	CloseWithLog(ctx, ok, nil, "resource")
	if !ok.closed {
		t.Error("closer was not closed")
	}

	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	failing := &fakeCloser{err: errors.New("broken pipe")}
	CloseWithLog(ctx, failing, logger, "socket")
	if !failing.closed {
		t.Error("failing closer was not closed")
	}
	if !strings.Contains(buf.String(), "socket") {
		t.Errorf("log output %q should name the resource", buf.String())
	}
}
