// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session persists the CodeBrain login session encrypted at rest.
//
// The bearer token is encrypted with AES-256-GCM under a key derived via
// PBKDF2-SHA-256 from a machine-local master secret, so a copied session
// file is useless without the key file next to it.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"

	"github.com/codebrain/codebrain-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// keySize is the AES-256 key size.
	keySize = 32

	// saltSize is the per-encryption key derivation salt size.
	saltSize = 16

	// nonceSize is the AES-GCM nonce size.
	nonceSize = 12

	// pbkdf2Iterations follows the OWASP recommendation for PBKDF2-SHA-256.
	pbkdf2Iterations = 600000

	// keyFileName holds the machine-local master secret.
	keyFileName = "session.key"
)

var (
	// ErrInvalidCiphertext indicates the stored blob is malformed.
	ErrInvalidCiphertext = errors.New("invalid session ciphertext")

	// ErrDecryptionFailed indicates a wrong key or tampered data.
	ErrDecryptionFailed = errors.New("session decryption failed")
)

// zeroBytes zeros sensitive material after use.
// SECURITY: Prevents key disclosure via crash dumps.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// =============================================================================
// KEY STORE
// =============================================================================

// keystore manages the master secret and performs encryption.
type keystore struct {
	dir string
}

// loadOrCreateSecret returns the master secret, generating it on first use.
// The key file is created 0600 in the session directory.
func (ks *keystore) loadOrCreateSecret() ([]byte, error) {
	path := filepath.Join(ks.dir, keyFileName)

	secret, err := os.ReadFile(path)
	if err == nil {
		if len(secret) != keySize {
			return nil, fmt.Errorf("corrupt key file %s: %d bytes", path, len(secret))
		}
		return secret, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	secret = make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("generate master secret: %w", err)
	}
	if err := util.AtomicWriteFile(path, secret, 0600); err != nil {
		return nil, fmt.Errorf("store master secret: %w", err)
	}
	return secret, nil
}

// seal encrypts plaintext, returning base64(salt | nonce | ciphertext).
// A fresh salt per call yields a fresh derived key, so nonce reuse across
// calls is structurally impossible.
func (ks *keystore) seal(plaintext []byte) (string, error) {
	secret, err := ks.loadOrCreateSecret()
	if err != nil {
		return "", err
	}
	defer zeroBytes(secret)

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key(secret, salt, pbkdf2Iterations, keySize, sha256.New)
	defer zeroBytes(key)

	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	blob := append(append(salt, nonce...), aead.Seal(nil, nonce, plaintext, nil)...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// open decrypts a blob produced by seal.
func (ks *keystore) open(encoded string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	if len(blob) < saltSize+nonceSize {
		return nil, ErrInvalidCiphertext
	}

	secret, err := ks.loadOrCreateSecret()
	if err != nil {
		return nil, err
	}
	defer zeroBytes(secret)

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	ciphertext := blob[saltSize+nonceSize:]

	key := pbkdf2.Key(secret, salt, pbkdf2Iterations, keySize, sha256.New)
	defer zeroBytes(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// newAEAD builds an AES-256-GCM cipher from a derived key.
func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return aead, nil
}
