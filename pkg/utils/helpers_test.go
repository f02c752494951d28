package utils

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	testCases := []string{
		"pw123456",
		"iamsuperadmin",
		"correct horse battery staple",
		"pässwörd",
	}

	for _, password := range testCases {
		t.Run(password, func(t *testing.T) {
			hash := HashPassword(password)

			if hash == password {
				t.Fatal("hash equals the plaintext")
			}
			if !strings.HasPrefix(hash, "$argon2id$") {
				t.Fatalf("unexpected hash format: %s", hash)
			}
			if !VerifyPassword(password, hash) {
				t.Error("correct password did not verify")
			}
			if VerifyPassword(password+"x", hash) {
				t.Error("wrong password verified")
			}
		})
	}
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	first := HashPassword("pw123456")
	second := HashPassword("pw123456")

	if first == second {
		t.Error("two hashes of the same password share a salt")
	}
}

func TestVerifyPasswordMalformedDigest(t *testing.T) {
	testCases := []string{
		"",
		"plaintext",
		"$argon2id$m=65536,t=1,p=4$not-base64!$also-not-base64!",
		"$pbkdf2$m=65536,t=1,p=4$c2FsdA$aGFzaA",
	}

	for _, digest := range testCases {
		if VerifyPassword("pw123456", digest) {
			t.Errorf("malformed digest %q verified", digest)
		}
	}
}

func TestGenerateSecureToken(t *testing.T) {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token := GenerateSecureToken(40)
		if len(token) != 40 {
			t.Fatalf("token length = %d; want 40", len(token))
		}
		for _, r := range token {
			if !strings.ContainsRune(chars, r) {
				t.Fatalf("token contains unexpected rune %q", r)
			}
		}
		if seen[token] {
			t.Fatal("duplicate token generated")
		}
		seen[token] = true
	}
}
