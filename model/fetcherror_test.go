package model

import (
	"errors"
	"strings"
	"testing"
)

func TestFetchErrorUnwrapsToUnderlyingError(t *testing.T) {
	underlying := errors.New("connection reset")
	fe := NewFetchError(ErrTransient, "http://example.com/tile", underlying)

	if !errors.Is(fe, underlying) {
		t.Fatalf("errors.Is(fe, underlying) = false, want true via Unwrap")
	}
	if !strings.Contains(fe.Error(), "connection reset") {
		t.Fatalf("Error() = %q, want it to mention the underlying error", fe.Error())
	}
}

func TestErrKindStringCoversEveryKind(t *testing.T) {
	kinds := []ErrKind{ErrTransient, ErrPermanent, ErrBudget, ErrFatal}
	seen := make(map[string]bool)
	for _, k := range kinds {
		s := k.String()
		if s == "unknown" {
			t.Fatalf("ErrKind %d stringified as unknown", k)
		}
		seen[s] = true
	}
	if len(seen) != len(kinds) {
		t.Fatalf("ErrKind.String() produced duplicate strings across %v", kinds)
	}
}
