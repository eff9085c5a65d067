package utils

import "testing"

func TestRandomDigits(t *testing.T) {
	code, err := RandomDigits(8)
	if err != nil {
		t.Fatalf("random digits: %v", err)
	}
	if len(code) != 8 {
		t.Fatalf("expected 8 digits, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("non-digit in %q", code)
		}
	}
	if def, _ := RandomDigits(0); len(def) != 6 {
		t.Fatalf("expected default length 6, got %q", def)
	}
}

func TestHashes(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPasswordHash("secret", hash) || CheckPasswordHash("wrong", hash) {
		t.Fatal("password hash mismatch")
	}
	otp, _ := HashSecret("123456")
	if !CheckPasswordHash("123456", otp) {
		t.Fatal("secret hash mismatch")
	}
	if CheckPasswordHash("", "") {
		t.Fatal("empty hash must never match")
	}
}
