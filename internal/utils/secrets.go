package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const secretBoxInfo = "eckmarket tenant credentials v1"

// SecretBox seals tenant API secrets at rest with AES-256-GCM.
// The AES key is derived from ENC_KEY with HKDF-SHA256.
type SecretBox struct {
	aead cipher.AEAD
}

// NewSecretBox derives the sealing key from a hex encoded master key (>= 16 bytes)
func NewSecretBox(encKeyHex string) (*SecretBox, error) {
	if encKeyHex == "" {
		return nil, errors.New("ENC_KEY environment variable not set")
	}
	master, err := hex.DecodeString(encKeyHex)
	if err != nil {
		return nil, errors.New("invalid ENC_KEY format, expected hex")
	}
	if len(master) < 16 {
		return nil, errors.New("ENC_KEY must be at least 16 bytes (32 hex chars)")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(secretBoxInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SecretBox{aead: aead}, nil
}

// Seal encrypts plaintext and returns base64(nonce || ciphertext)
func (b *SecretBox) Seal(plaintext string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal
func (b *SecretBox) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", errors.New("sealed secret is not valid base64")
	}
	ns := b.aead.NonceSize()
	if len(raw) <= ns {
		return "", errors.New("sealed secret is too short")
	}
	plain, err := b.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", errors.New("decryption failed: invalid auth tag or corrupted data")
	}
	return string(plain), nil
}
