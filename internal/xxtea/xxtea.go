// Package xxtea implements the XXTEA block cipher in the variant cocos2d-x
// uses to protect compiled Lua scripts: a 16-byte zero-padded key, little
// endian words, and the plaintext length stored in the last word.
package xxtea

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// delta is the key schedule constant.
const delta = 0x9e3779b9

var (
	ErrEmpty             = errors.New("xxtea: empty data")
	ErrLength            = errors.New("xxtea: invalid length in data (wrong key?)")
	ErrSignatureMismatch = errors.New("xxtea: signature mismatch")
)

// key is a cipher key as four little-endian words.
type key [4]uint32

// newKey truncates or zero-pads k to 16 bytes.
func newKey(k []byte) key {
	var padded [16]byte
	copy(padded[:], k)

	var out key
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(padded[i*4:])
	}
	return out
}

func (k *key) mx(sum, y, z uint32, p int, e uint32) uint32 {
	return ((z>>5 ^ y<<2) + (y>>3 ^ z<<4)) ^ ((sum ^ y) + (k[uint32(p&3)^e] ^ z))
}

func (k *key) encrypt(v []uint32) {
	n := len(v) - 1
	if n < 1 {
		return
	}
	z := v[n]
	var sum uint32
	for rounds := 6 + 52/(n+1); rounds > 0; rounds-- {
		sum += delta
		e := sum >> 2 & 3
		for p := 0; p < n; p++ {
			y := v[p+1]
			v[p] += k.mx(sum, y, z, p, e)
			z = v[p]
		}
		v[n] += k.mx(sum, v[0], z, n, e)
		z = v[n]
	}
}

func (k *key) decrypt(v []uint32) {
	n := len(v) - 1
	if n < 1 {
		return
	}
	y := v[0]
	for sum := uint32(6+52/(n+1)) * delta; sum != 0; sum -= delta {
		e := sum >> 2 & 3
		for p := n; p > 0; p-- {
			z := v[p-1]
			v[p] -= k.mx(sum, y, z, p, e)
			y = v[p]
		}
		v[0] -= k.mx(sum, y, v[n], 0, e)
		y = v[0]
	}
}

// toWords packs data into little-endian words, optionally appending the
// byte length as a final word.
func toWords(data []byte, withLength bool) []uint32 {
	n := (len(data) + 3) / 4
	words := make([]uint32, n, n+1)
	for i, b := range data {
		words[i/4] |= uint32(b) << (uint(i%4) * 8)
	}
	if withLength {
		words = append(words, uint32(len(data)))
	}
	return words
}

// fromWords unpacks words. With withLength the last word is the length of
// the plaintext and must fit inside the preceding words.
func fromWords(words []uint32, withLength bool) ([]byte, error) {
	size := len(words) * 4
	if withLength {
		if len(words) == 0 {
			return nil, ErrLength
		}
		m := int(words[len(words)-1])
		if m < size-7 || m > size-4 {
			return nil, ErrLength
		}
		size = m
	}
	out := make([]byte, size)
	for i := range out {
		out[i] = byte(words[i/4] >> (uint(i%4) * 8))
	}
	return out, nil
}

// Encrypt encrypts data with k.
func Encrypt(data, k []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	v := toWords(data, true)
	key := newKey(k)
	key.encrypt(v)
	return fromWords(v, false)
}

// Decrypt reverses Encrypt. A wrong key is normally detected through the
// embedded length and reported as ErrLength.
func Decrypt(data, k []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	v := toWords(data, false)
	key := newKey(k)
	key.decrypt(v)
	return fromWords(v, true)
}

// EncryptWithSignature encrypts signature+data, the layout some games use
// instead of a plaintext prefix.
func EncryptWithSignature(data, k, signature []byte) ([]byte, error) {
	if len(signature) == 0 {
		return Encrypt(data, k)
	}
	combined := make([]byte, 0, len(signature)+len(data))
	combined = append(combined, signature...)
	combined = append(combined, data...)
	return Encrypt(combined, k)
}

// DecryptWithSignature decrypts data and strips the signature that must
// start the plaintext.
func DecryptWithSignature(data, k, signature []byte) ([]byte, error) {
	plain, err := Decrypt(data, k)
	if err != nil {
		return nil, err
	}
	if len(signature) == 0 {
		return plain, nil
	}
	if !bytes.HasPrefix(plain, signature) {
		return nil, ErrSignatureMismatch
	}
	return plain[len(signature):], nil
}

// Seal produces the cocos2d-x file layout: a plaintext signature followed
// by the ciphertext.
func Seal(data, k, signature []byte) ([]byte, error) {
	enc, err := Encrypt(data, k)
	if err != nil {
		return nil, err
	}
	return append(append([]byte(nil), signature...), enc...), nil
}

// Open reverses Seal. When data does not start with signature it falls
// back to DecryptWithSignature, which expects the signature inside the
// ciphertext.
func Open(data, k, signature []byte) ([]byte, error) {
	if len(signature) > 0 && bytes.HasPrefix(data, signature) {
		return Decrypt(data[len(signature):], k)
	}
	return DecryptWithSignature(data, k, signature)
}
