package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "config not found")
		if err.Error() != "[NOT_FOUND] config not found" {
			t.Errorf("expected [NOT_FOUND] config not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("permission denied")
		err := Wrap(original, CodeReadFailed, "read source")
		expected := "[READ_FAILED] read source: permission denied"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to original")
		}
	})

	t.Run("ContextIsSorted", func(t *testing.T) {
		err := AddContext(New(CodeRuleFailed, "panic"), CtxRule, "COMPLEXITY")
		err = AddContext(err, CtxPath, "a.py")
		expected := "[RULE_FAILED] panic (path=a.py rule=COMPLEXITY)"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("AddContextOnPlainError", func(t *testing.T) {
		err := AddContext(errors.New("boom"), CtxOperation, "walk")
		if !IsCode(err, CodeInternal) {
			t.Error("expected plain errors to be wrapped as internal")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", Newf(CodeValidationError, "bad value %d", 3))
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to see through fmt wrapping")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(fmt.Errorf("load: %w", New(CodeNotFound, "missing"))); got != CodeNotFound {
		t.Errorf("expected NOT_FOUND, got %q", got)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("expected empty code, got %q", got)
	}
	if IsCode(nil, "") {
		t.Error("expected nil error to match no code")
	}
}
