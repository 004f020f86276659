package util

import (
	"errors"
	"strings"
	"testing"
)

func TestUserNamespaceIsStableHex(t *testing.T) {
	got := UserNamespace("guest:12345")
	if got != UserNamespace("guest:12345") {
		t.Fatalf("expected stable namespace, got %s", got)
	}
	if got == UserNamespace("guest:12346") {
		t.Fatalf("different users must not share a namespace")
	}
	if len(got) != namespaceLen {
		t.Fatalf("expected %d characters, got %d", namespaceLen, len(got))
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("namespace contains non-hex character: %c", ch)
		}
	}
}

func TestNewObjectKey(t *testing.T) {
	key, err := NewObjectKey("user-1", "Q3/annual report.pdf")
	if err != nil {
		t.Fatalf("NewObjectKey: %v", err)
	}
	ns, name, ok := strings.Cut(key, "/")
	if !ok || ns != UserNamespace("user-1") {
		t.Fatalf("expected key under the user namespace, got %q", key)
	}
	random, file, ok := strings.Cut(name, "_")
	if !ok || len(random) != 32 || file != "Q3_annual report.pdf" {
		t.Fatalf("unexpected object name %q", name)
	}
	if err := CheckObjectKey(key); err != nil {
		t.Fatalf("generated key rejected: %v", err)
	}

	other, _ := NewObjectKey("user-1", "Q3/annual report.pdf")
	if other == key {
		t.Fatalf("expected a fresh key per upload")
	}
	if _, err := NewObjectKey("user-1", "   "); err == nil {
		t.Fatalf("expected error for blank file name")
	}
}

func TestCheckObjectKey(t *testing.T) {
	for _, key := range []string{"", " ", ".", "..", "../etc/passwd", "/etc/passwd", `..\secret`, "a/../../b"} {
		if err := CheckObjectKey(key); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("CheckObjectKey(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
	for _, key := range []string{"abc/1_report.pdf", "abc/./1_report.pdf"} {
		if err := CheckObjectKey(key); err != nil {
			t.Fatalf("CheckObjectKey(%q): %v", key, err)
		}
	}
}
