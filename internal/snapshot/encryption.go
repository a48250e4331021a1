package snapshot

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

// Encrypted member files carry a short header so a restore can tell
// them apart from plaintext archives.
var encryptionMagic = []byte("KVLT1")

const (
	// EncryptedSuffix is appended to encrypted member file names
	EncryptedSuffix = ".enc"

	saltSize        = 16
	pbkdf2Iters     = 100000
	derivedKeyBytes = 32
)

// Cipher encrypts and decrypts snapshot members with AES-256-GCM.
// The key is derived from a passphrase with PBKDF2-SHA256 and a
// per-file random salt.
type Cipher struct {
	passphrase string
}

// NewCipher creates a cipher from a passphrase
func NewCipher(passphrase string) (*Cipher, error) {
	if passphrase == "" {
		return nil, NewEncryptionError("passphrase must not be empty", nil)
	}
	return &Cipher{passphrase: passphrase}, nil
}

func (c *Cipher) deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(c.passphrase), salt, pbkdf2Iters, derivedKeyBytes, sha256.New)
}

// Encrypt seals plaintext into magic || salt || nonce || ciphertext
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, NewEncryptionError("failed to generate salt", err)
	}

	block, err := aes.NewCipher(c.deriveKey(salt))
	if err != nil {
		return nil, NewEncryptionError("failed to create AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, NewEncryptionError("failed to create GCM cipher", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, NewEncryptionError("failed to generate nonce", err)
	}

	out := make([]byte, 0, len(encryptionMagic)+saltSize+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, encryptionMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, nil)
	return out, nil
}

// Decrypt opens data produced by Encrypt
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	if !IsEncrypted(data) {
		return nil, NewEncryptionError("data does not carry an encryption header", nil)
	}
	data = data[len(encryptionMagic):]

	if len(data) < saltSize {
		return nil, NewEncryptionError("encrypted data too short", nil)
	}
	salt, data := data[:saltSize], data[saltSize:]

	block, err := aes.NewCipher(c.deriveKey(salt))
	if err != nil {
		return nil, NewEncryptionError("failed to create AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, NewEncryptionError("failed to create GCM cipher", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, NewEncryptionError("encrypted data too short", nil)
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, NewEncryptionError("failed to decrypt data, wrong passphrase or corrupted input", err)
	}
	return plaintext, nil
}

// EncryptFile seals a member file in place, replacing it with a
// sibling carrying the encrypted suffix.
func (c *Cipher) EncryptFile(path string) (string, error) {
	plaintext, err := os.ReadFile(path)
	if err != nil {
		return "", NewStorageError("failed to read file for encryption", err).WithContext("path", path)
	}

	sealed, err := c.Encrypt(plaintext)
	if err != nil {
		return "", err
	}

	encPath := path + EncryptedSuffix
	if err := os.WriteFile(encPath, sealed, 0600); err != nil {
		return "", NewStorageError("failed to write encrypted file", err).WithContext("path", encPath)
	}
	if err := os.Remove(path); err != nil {
		return "", NewStorageError("failed to remove plaintext file", err).WithContext("path", path)
	}
	return encPath, nil
}

// DecryptFile opens an encrypted member file and writes the plaintext
// to the path without the encrypted suffix.
func (c *Cipher) DecryptFile(encPath string) (string, error) {
	sealed, err := os.ReadFile(encPath)
	if err != nil {
		return "", NewStorageError("failed to read encrypted file", err).WithContext("path", encPath)
	}

	plaintext, err := c.Decrypt(sealed)
	if err != nil {
		return "", err
	}

	path := encPath
	if len(path) > len(EncryptedSuffix) && path[len(path)-len(EncryptedSuffix):] == EncryptedSuffix {
		path = path[:len(path)-len(EncryptedSuffix)]
	}
	if err := os.WriteFile(path, plaintext, 0644); err != nil {
		return "", NewStorageError("failed to write decrypted file", err).WithContext("path", path)
	}
	return path, nil
}

// IsEncrypted reports whether data starts with the encryption header
func IsEncrypted(data []byte) bool {
	return bytes.HasPrefix(data, encryptionMagic)
}
