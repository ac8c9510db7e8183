package vault

import (
	"bytes"
	"testing"

	"github.com/doc2md/doc2md/internal/core/domain"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plain := []byte(`{"profiles":[{"name":"openai","api_key":"secret"}]}`)

	blob, err := EncryptBlob(plain, "passphrase")
	if err != nil {
		t.Fatalf("EncryptBlob() error = %v", err)
	}
	back, err := DecryptBlob(blob, "passphrase")
	if err != nil {
		t.Fatalf("DecryptBlob() error = %v", err)
	}
	if !bytes.Equal(back, plain) {
		t.Fatalf("round trip mismatch: got %q want %q", back, plain)
	}
}

func TestEncryptUsesFreshSaltAndNonce(t *testing.T) {
	plain := []byte("same plaintext")

	first, err := EncryptBlob(plain, "pass")
	if err != nil {
		t.Fatalf("EncryptBlob() error = %v", err)
	}
	second, err := EncryptBlob(plain, "pass")
	if err != nil {
		t.Fatalf("EncryptBlob() error = %v", err)
	}
	if bytes.Equal(first, second) {
		t.Fatal("two saves of the same plaintext produced identical envelopes")
	}
}

func TestDecryptFailsClosedOnAnyFlippedByte(t *testing.T) {
	blob, err := EncryptBlob([]byte("secret payload"), "pass")
	if err != nil {
		t.Fatalf("EncryptBlob() error = %v", err)
	}

	for i := range blob {
		tampered := append([]byte(nil), blob...)
		tampered[i] ^= 0x01

		plain, err := DecryptBlob(tampered, "pass")
		if err == nil {
			t.Fatalf("flipping byte %d still decrypted to %q", i, plain)
		}
		if !domain.IsKind(err, domain.ErrDecryptFailed) {
			t.Fatalf("flipping byte %d: error = %v, want ErrDecryptFailed kind", i, err)
		}
	}
}

func TestDecryptWrongPassphraseIsOpaque(t *testing.T) {
	blob, err := EncryptBlob([]byte("secret"), "right")
	if err != nil {
		t.Fatalf("EncryptBlob() error = %v", err)
	}
	_, err = DecryptBlob(blob, "wrong")
	if !domain.IsKind(err, domain.ErrDecryptFailed) {
		t.Fatalf("error = %v, want ErrDecryptFailed kind", err)
	}
}

func TestDecryptTruncatedEnvelope(t *testing.T) {
	blob, err := EncryptBlob([]byte("secret"), "pass")
	if err != nil {
		t.Fatalf("EncryptBlob() error = %v", err)
	}
	for _, n := range []int{0, 4, 5, 20, len(blob) - 1} {
		if _, err := DecryptBlob(blob[:n], "pass"); !domain.IsKind(err, domain.ErrDecryptFailed) {
			t.Fatalf("truncated to %d bytes: error = %v, want ErrDecryptFailed kind", n, err)
		}
	}
}

func TestEmptyPassphraseRejected(t *testing.T) {
	if _, err := EncryptBlob([]byte("x"), "   "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("EncryptBlob error = %v, want ErrInvalidInput kind", err)
	}
	if _, err := DecryptBlob([]byte("whatever"), ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("DecryptBlob error = %v, want ErrInvalidInput kind", err)
	}
}
