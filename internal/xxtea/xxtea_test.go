package xxtea

import (
	"bytes"
	"errors"
	"testing"

	reference "github.com/xxtea/xxtea-go/xxtea"
)

func TestEncryptDecrypt(t *testing.T) {
	tests := []struct {
		name string
		data string
		key  string
	}{
		{"simple text", "Hello, World!", "1234567890"},
		{"empty key", "Test data", ""},
		{"short key", "Another test", "key"},
		{"exact 16 byte key", "Test with 16byte", "1234567890123456"},
		{"long key", "Test with long key", "12345678901234567890"},
		{"binary data", "\x00\x01\x02\x03\x04\x05\x06\x07", "binarykey"},
		{"single byte", "a", "key"},
		{"lua chunk header", "\x1bLua\x53\x00\x19\x93\r\n\x1a\n\x04\x08\x08", "2dxLua"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted, err := Encrypt([]byte(tt.data), []byte(tt.key))
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			if bytes.Equal(encrypted, []byte(tt.data)) {
				t.Error("ciphertext equals plaintext")
			}
			if len(encrypted)%4 != 0 {
				t.Errorf("ciphertext length %d is not word aligned", len(encrypted))
			}

			decrypted, err := Decrypt(encrypted, []byte(tt.key))
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if !bytes.Equal(decrypted, []byte(tt.data)) {
				t.Errorf("round trip = %q, want %q", decrypted, tt.data)
			}
		})
	}
}

// The cipher must stay byte compatible with the xxtea-go package that
// cocos2d-x tooling is usually paired with.
func TestMatchesReferenceImplementation(t *testing.T) {
	inputs := []struct{ data, key string }{
		{"Hello, World!", "1234567890"},
		{"a", "k"},
		{"\x1bLuaS\x00", "0123456789abcdefXYZ"},
		{string(bytes.Repeat([]byte{0xAB}, 1024)), "secret"},
	}
	for _, in := range inputs {
		got, err := Encrypt([]byte(in.data), []byte(in.key))
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", in.data, err)
		}
		want := reference.Encrypt([]byte(in.data), []byte(in.key))
		if !bytes.Equal(got, want) {
			t.Errorf("Encrypt(%q, %q) = %x, reference %x", in.data, in.key, got, want)
		}

		plain, err := Decrypt(want, []byte(in.key))
		if err != nil {
			t.Fatalf("Decrypt(reference ciphertext): %v", err)
		}
		if string(plain) != in.data {
			t.Errorf("Decrypt(reference) = %q, want %q", plain, in.data)
		}
	}
}

func TestWithSignature(t *testing.T) {
	data := []byte("Secret message")
	key := []byte("mykey")
	sig := []byte("SIGNATURE")

	encrypted, err := EncryptWithSignature(data, key, sig)
	if err != nil {
		t.Fatalf("EncryptWithSignature: %v", err)
	}
	decrypted, err := DecryptWithSignature(encrypted, key, sig)
	if err != nil {
		t.Fatalf("DecryptWithSignature: %v", err)
	}
	if !bytes.Equal(decrypted, data) {
		t.Errorf("got %q, want %q", decrypted, data)
	}

	_, err = DecryptWithSignature(encrypted, key, []byte("WRONGSIG!"))
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("wrong signature: err = %v, want ErrSignatureMismatch", err)
	}

	plain, err := DecryptWithSignature(encrypted, key, nil)
	if err != nil {
		t.Fatalf("DecryptWithSignature without signature: %v", err)
	}
	if !bytes.HasPrefix(plain, sig) {
		t.Errorf("signature not kept in plaintext: %q", plain)
	}
}

func TestSealOpen(t *testing.T) {
	data := []byte("\x1bLuaS\x00 chunk body")
	key := []byte("2dxLua")
	sig := []byte("XXTEA")

	sealed, err := Seal(data, key, sig)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !bytes.HasPrefix(sealed, sig) {
		t.Fatalf("sealed data lacks plaintext signature: %q", sealed[:8])
	}
	opened, err := Open(sealed, key, sig)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(opened, data) {
		t.Errorf("Open = %q, want %q", opened, data)
	}

	// Signature inside the ciphertext.
	inner, err := EncryptWithSignature(data, key, sig)
	if err != nil {
		t.Fatal(err)
	}
	opened, err = Open(inner, key, sig)
	if err != nil {
		t.Fatalf("Open(inner signature): %v", err)
	}
	if !bytes.Equal(opened, data) {
		t.Errorf("Open(inner signature) = %q, want %q", opened, data)
	}
}

func TestNewKey(t *testing.T) {
	short := newKey([]byte("abc"))
	if short != (key{0x00636261, 0, 0, 0}) {
		t.Errorf("newKey(abc) = %#x", short)
	}
	long := newKey([]byte("0123456789abcdefEXTRA"))
	if long != newKey([]byte("0123456789abcdef")) {
		t.Error("key longer than 16 bytes not truncated")
	}
}

func TestEdgeCases(t *testing.T) {
	if _, err := Encrypt(nil, []byte("key")); !errors.Is(err, ErrEmpty) {
		t.Errorf("Encrypt(nil) err = %v, want ErrEmpty", err)
	}
	if _, err := Decrypt(nil, []byte("key")); !errors.Is(err, ErrEmpty) {
		t.Errorf("Decrypt(nil) err = %v, want ErrEmpty", err)
	}

	// A word count that cannot hold a length trailer.
	if _, err := Decrypt([]byte{0xff, 0xff, 0xff, 0x7f}, []byte("key")); !errors.Is(err, ErrLength) {
		t.Errorf("Decrypt(bad length) err = %v, want ErrLength", err)
	}
}

func TestWrongKey(t *testing.T) {
	data := bytes.Repeat([]byte("lua bytecode "), 16)
	encrypted, err := Encrypt(data, []byte("right"))
	if err != nil {
		t.Fatal(err)
	}
	plain, err := Decrypt(encrypted, []byte("wrong"))
	if err == nil && bytes.Equal(plain, data) {
		t.Error("wrong key recovered the plaintext")
	}
}

func BenchmarkEncrypt(b *testing.B) {
	data := bytes.Repeat([]byte{0x5a}, 64<<10)
	key := []byte("benchmark")
	b.SetBytes(int64(len(data)))
	for b.Loop() {
		_, _ = Encrypt(data, key)
	}
}

func BenchmarkDecrypt(b *testing.B) {
	data := bytes.Repeat([]byte{0x5a}, 64<<10)
	key := []byte("benchmark")
	encrypted, _ := Encrypt(data, key)
	b.SetBytes(int64(len(encrypted)))
	for b.Loop() {
		_, _ = Decrypt(encrypted, key)
	}
}
