package airq

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const keySize = 32

var errPadding = errors.New("invalid padding")

// Cipher encrypts and decrypts air-Q payloads for a single device password.
type Cipher struct {
	block cipher.Block
}

// NewCipher derives the AES-256 key from password. Short passwords are right-padded with '0', long ones truncated.
func NewCipher(password string) (*Cipher, error) {
	key := []byte(password)
	if len(key) < keySize {
		key = append(key, bytes.Repeat([]byte{'0'}, keySize-len(key))...)
	}

	block, err := aes.NewCipher(key[:keySize])
	if err != nil {
		return nil, fmt.Errorf("airq: cipher: %w", err)
	}

	return &Cipher{block: block}, nil
}

// Decrypt decodes base64 content and returns the plaintext. Any failure means the password is wrong.
func (c *Cipher) Decrypt(content string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}

	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d: %w", len(raw), errPadding)
	}

	iv, ciphertext := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plain, ciphertext)

	pad := int(plain[len(plain)-1])
	if pad == 0 || pad > aes.BlockSize {
		return nil, errPadding
	}

	return plain[:len(plain)-pad], nil
}

// Encrypt pads plaintext, encrypts it with a random IV and returns base64 content as the device would send it.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	pad := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := append(append([]byte{}, plaintext...), bytes.Repeat([]byte{byte(pad)}, pad)...)

	out := make([]byte, aes.BlockSize+len(padded))
	if _, err := rand.Read(out[:aes.BlockSize]); err != nil {
		return "", fmt.Errorf("airq: iv: %w", err)
	}

	cipher.NewCBCEncrypter(c.block, out[:aes.BlockSize]).CryptBlocks(out[aes.BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}
