package crypto

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "secret"); err != nil {
		t.Fatalf("expected password to match")
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected password mismatch")
	}
}

func TestNewRegistrationToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		token, err := NewRegistrationToken(8)
		if err != nil {
			t.Fatalf("token error: %v", err)
		}
		if len(token) != 8 {
			t.Fatalf("expected length 8, got %d", len(token))
		}
		seen[token] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected tokens to vary")
	}
	if token, _ := NewRegistrationToken(0); len(token) != 8 {
		t.Fatalf("expected default length 8, got %d", len(token))
	}
}
