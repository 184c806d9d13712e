package crypto

import "testing"

func TestGenerateSalt_ReturnsSixteenBytes(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	if len(salt) != 16 {
		t.Fatalf("expected a 16-byte salt, got %d", len(salt))
	}
}

func TestPasswordHasher_HashAndVerifyRoundTrip(t *testing.T) {
	h := NewPasswordHasher()
	encoded, err := h.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := h.VerifyPassword("correct horse battery staple", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatal("expected the correct password to verify")
	}

	ok, err = h.VerifyPassword("wrong password", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Fatal("expected an incorrect password to fail verification")
	}
}
