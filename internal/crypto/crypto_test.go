package icrypto

import (
	"bytes"
	"testing"
)

func TestAADState(t *testing.T) {
	a1 := AADState("invoices-draft")
	a2 := AADState("invoices-draft")
	if !bytes.Equal(a1, a2) {
		t.Error("AADState should be deterministic")
	}

	if bytes.Equal(a1, AADState("contacts")) {
		t.Error("AADState should differ for different names")
	}
	if bytes.Equal(a1, AADPINCheck()) {
		t.Error("state and pin-check AAD must not collide")
	}
}

func TestAADLengthPrefix(t *testing.T) {
	// Without length prefixes "ab"+"c" and "a"+"bc" would collide.
	x := buildAAD("ab", "c")
	y := buildAAD("a", "bc")
	if bytes.Equal(x, y) {
		t.Error("length-prefixed parts must not collide")
	}
}
