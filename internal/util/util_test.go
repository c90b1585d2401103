package util

import (
	"bytes"
	"crypto/x509"
	"testing"
)

func TestAESGCM(t *testing.T) {
	key, _ := NewAESKey()
	plainText := []byte("hello world")
	aad := []byte("context")

	t.Run("SealOpen", func(t *testing.T) {
		sealed, err := SealAESGCM(plainText, key, aad)
		if err != nil {
			t.Fatalf("SealAESGCM failed: %v", err)
		}
		if len(sealed) != GCMNonceSize+len(plainText)+16 {
			t.Errorf("unexpected sealed length %d", len(sealed))
		}

		opened, err := OpenAESGCM(sealed, key, aad)
		if err != nil {
			t.Fatalf("OpenAESGCM failed: %v", err)
		}
		if !bytes.Equal(plainText, opened) {
			t.Errorf("expected %s, got %s", plainText, opened)
		}
	})

	t.Run("FreshNonce", func(t *testing.T) {
		a, _ := SealAESGCM(plainText, key, nil)
		b, _ := SealAESGCM(plainText, key, nil)
		if bytes.Equal(a[:GCMNonceSize], b[:GCMNonceSize]) {
			t.Error("nonce reused across calls")
		}
	})

	t.Run("TamperAAD", func(t *testing.T) {
		sealed, _ := SealAESGCM(plainText, key, aad)
		if _, err := OpenAESGCM(sealed, key, []byte("wrong context")); err == nil {
			t.Error("expected error with wrong AAD, got nil")
		}
	})

	t.Run("TamperCipherText", func(t *testing.T) {
		sealed, _ := SealAESGCM(plainText, key, aad)
		sealed[len(sealed)-1] ^= 0xFF
		if _, err := OpenAESGCM(sealed, key, aad); err == nil {
			t.Error("expected error with tampered ciphertext, got nil")
		}
	})

	t.Run("ShortCipherText", func(t *testing.T) {
		if _, err := OpenAESGCM(make([]byte, GCMNonceSize), key, nil); err != ErrShortCiphertext {
			t.Errorf("expected ErrShortCiphertext, got %v", err)
		}
	})

	t.Run("RejectBadKeySize", func(t *testing.T) {
		if _, err := SealAESGCM(plainText, []byte("too short"), aad); err == nil {
			t.Error("expected error with wrong key size, got nil")
		}
	})
}

func TestPBKDF2(t *testing.T) {
	params := PBKDF2Params{Iterations: MinPBKDF2Iterations, KeyLen: AESKeySize}
	salt := []byte("0123456789abcdef")

	k1, err := DerivePBKDF2Key("1234", salt, params)
	if err != nil {
		t.Fatalf("DerivePBKDF2Key failed: %v", err)
	}
	if len(k1) != AESKeySize {
		t.Errorf("expected key length %d, got %d", AESKeySize, len(k1))
	}

	k2, _ := DerivePBKDF2Key("1234", salt, params)
	if !bytes.Equal(k1, k2) {
		t.Error("PBKDF2 should be deterministic")
	}

	k3, _ := DerivePBKDF2Key("9999", salt, params)
	if bytes.Equal(k1, k3) {
		t.Error("different PINs should yield different keys")
	}

	k4, _ := DerivePBKDF2Key("1234", []byte("another-salt-val"), params)
	if bytes.Equal(k1, k4) {
		t.Error("different salts should yield different keys")
	}

	t.Run("RejectLowIterations", func(t *testing.T) {
		_, err := DerivePBKDF2Key("1234", salt, PBKDF2Params{Iterations: 1000, KeyLen: AESKeySize})
		if err == nil {
			t.Error("expected error for iterations below minimum")
		}
	})

	t.Run("RejectEmptySalt", func(t *testing.T) {
		if _, err := DerivePBKDF2Key("1234", nil, params); err == nil {
			t.Error("expected error for empty salt")
		}
	})
}

func TestDefaultPBKDF2Params(t *testing.T) {
	if err := ValidatePBKDF2Params(DefaultPBKDF2Params()); err != nil {
		t.Errorf("default params should be valid: %v", err)
	}
}

func TestArgon2id(t *testing.T) {
	params := Argon2idParams{Time: 1, MemoryKiB: 8 * 1024, Parallelism: 1, KeyLen: 32}

	hash, err := HashArgon2id("correct horse battery staple", params)
	if err != nil {
		t.Fatalf("HashArgon2id failed: %v", err)
	}

	ok, err := VerifyArgon2id("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("VerifyArgon2id failed: %v", err)
	}
	if !ok {
		t.Error("expected password to verify")
	}

	ok, _ = VerifyArgon2id("wrong passphrase", hash)
	if ok {
		t.Error("expected wrong password to fail")
	}

	other, _ := HashArgon2id("correct horse battery staple", params)
	if other == hash {
		t.Error("hashes should use distinct salts")
	}

	if _, err := VerifyArgon2id("x", "$bcrypt$nope"); err == nil {
		t.Error("expected error for malformed hash")
	}
}

func TestBytes(t *testing.T) {
	a := []byte{0x01, 0x02, 0x03}
	copied := CopyBytes(a)
	if !bytes.Equal(copied, a) {
		t.Error("CopyBytes failed")
	}
	copied[0] = 0xFF
	if a[0] == 0xFF {
		t.Error("CopyBytes should return a new slice")
	}

	WipeBytes(a)
	if !bytes.Equal(a, []byte{0, 0, 0}) {
		t.Errorf("WipeBytes left %v", a)
	}
}

func TestEncoding(t *testing.T) {
	encoded := Base64Encode([]byte("test string"))
	decoded, err := Base64Decode(encoded)
	if err != nil {
		t.Fatalf("Base64Decode failed: %v", err)
	}
	if string(decoded) != "test string" {
		t.Errorf("expected %q, got %q", "test string", decoded)
	}

	// Precomposed and decomposed forms normalise identically.
	if Normalize("café") != Normalize("café") {
		t.Error("Normalize should fold composed and decomposed forms")
	}
}

func TestRandomBytes(t *testing.T) {
	b1, err := RandomBytes(32)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	b2, _ := RandomBytes(32)
	if len(b1) != 32 {
		t.Errorf("expected 32 bytes, got %d", len(b1))
	}
	if bytes.Equal(b1, b2) {
		t.Error("RandomBytes should produce different outputs")
	}
}

func TestGenerateSelfSignedCert(t *testing.T) {
	cert, err := GenerateSelfSignedCert()
	if err != nil {
		t.Fatalf("GenerateSelfSignedCert failed: %v", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("ParseCertificate failed: %v", err)
	}
	if err := leaf.VerifyHostname("localhost"); err != nil {
		t.Errorf("certificate should cover localhost: %v", err)
	}
}
