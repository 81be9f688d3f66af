package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeConfiguration, "invalid service name: %q", "a:b")

	if err.Code != ErrCodeConfiguration {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeConfiguration)
	}
	if !strings.Contains(err.Error(), "CONFIGURATION") {
		t.Errorf("Error() should contain code: %s", err.Error())
	}
	if !strings.Contains(err.Error(), `"a:b"`) {
		t.Errorf("Error() should contain formatted message: %s", err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeTransport, cause, "fetch %s failed", "fraud")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() should include cause: %s", err.Error())
	}
}

func TestIs(t *testing.T) {
	err := New(ErrCodeCircularDependency, "cycle: a -> b -> a")

	if !Is(err, ErrCodeCircularDependency) {
		t.Error("Is should match the error's code")
	}
	if Is(err, ErrCodeTransport) {
		t.Error("Is should not match a different code")
	}
	if Is(stderrors.New("plain"), ErrCodeTransport) {
		t.Error("Is should be false for non-structured errors")
	}
}

func TestIsThroughWrapping(t *testing.T) {
	inner := New(ErrCodeNotRegistered, "service %q is not registered", "configManager")
	outer := fmt.Errorf("resolve apiService: %w", inner)

	if !Is(outer, ErrCodeNotRegistered) {
		t.Error("Is should unwrap fmt.Errorf chains")
	}
	if GetCode(outer) != ErrCodeNotRegistered {
		t.Errorf("GetCode = %s, want %s", GetCode(outer), ErrCodeNotRegistered)
	}
}

func TestGetCodePlainError(t *testing.T) {
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode for plain error = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeRenderValidation, "all series empty")
	if got := UserMessage(err); got != "all series empty" {
		t.Errorf("UserMessage = %q", got)
	}

	plain := stderrors.New("boom")
	if got := UserMessage(plain); got != "boom" {
		t.Errorf("UserMessage for plain error = %q", got)
	}
}
