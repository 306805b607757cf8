package secrets

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func TestLLMKeyRoundTrip(t *testing.T) {
	s := New(keyring.NewArrayKeyring(nil))

	if _, err := s.LLMKey(); !errors.Is(err, ErrNotSet) {
		t.Fatalf("LLMKey on empty ring = %v, want ErrNotSet", err)
	}

	if err := s.SetLLMKey("sk-test-1234567890"); err != nil {
		t.Fatalf("SetLLMKey: %v", err)
	}
	got, err := s.LLMKey()
	if err != nil {
		t.Fatalf("LLMKey: %v", err)
	}
	if got != "sk-test-1234567890" {
		t.Errorf("LLMKey = %q", got)
	}

	if err := s.DeleteLLMKey(); err != nil {
		t.Fatalf("DeleteLLMKey: %v", err)
	}
	if _, err := s.LLMKey(); !errors.Is(err, ErrNotSet) {
		t.Errorf("LLMKey after delete = %v, want ErrNotSet", err)
	}
	if err := s.DeleteLLMKey(); err != nil {
		t.Errorf("second DeleteLLMKey = %v, want nil", err)
	}
}

func TestSetLLMKeyRejectsEmpty(t *testing.T) {
	s := New(keyring.NewArrayKeyring(nil))
	if err := s.SetLLMKey(""); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"short", "********"},
		{"12345678", "********"},
		{"sk-abcdefghijkl", "sk-a...ijkl"},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
