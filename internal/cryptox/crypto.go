// Package cryptox provides the primitives the auth core builds on: credential
// key derivation, stable digests for storage keys, and AES-GCM sealing of
// JSON payloads.
//
// Note: callers supply the keys. The containing application ships a static
// key, so sealing here protects against casual inspection only; it is not a
// security boundary.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/argon2"
)

const nonceSize = 12

var ErrMalformedBlob = errors.New("malformed encrypted blob")

// DeriveKey derives a fixed-length AES key from a passphrase and salt using
// Argon2id. The session vault seals records under a key from here.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// HashCredential returns hex(sha256(password + salt)), the form stored in
// the compiled-in credential directory.
func HashCredential(password, salt string) string {
	return Digest(password + salt)
}

// Digest returns a stable hex digest of s, used to build storage keys
// without embedding raw usernames.
func Digest(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// Seal serializes v to JSON and encrypts it with AES-GCM under key.
// The result is base64(nonce || ciphertext), a single self-contained blob
// suitable for a string-keyed store.
//
// The key must be a valid AES key length (16, 24, or 32 bytes). A fresh
// random nonce is generated per call.
func Seal(v any, key []byte) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	ciphertext := aesgcm.Seal(nil, nonce, plaintext, nil)

	return base64.StdEncoding.EncodeToString(append(nonce, ciphertext...)), nil
}

// Open reverses Seal: decodes, decrypts and unmarshals into v. Any
// corruption (bad base64, truncated blob, failed authentication, bad JSON)
// yields an error; nothing panics.
func Open(blob string, key []byte, v any) error {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return ErrMalformedBlob
	}
	if len(raw) <= nonceSize {
		return ErrMalformedBlob
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrMalformedBlob
	}

	return json.Unmarshal(plaintext, v)
}
