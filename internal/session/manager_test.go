// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, m.Save(Session{
		Token:       "tok-abc",
		UserID:      "1",
		Email:       "ada@example.com",
		DisplayName: "Ada",
	}))

	// Fresh manager: forces a disk read through the keystore.
	m2, err := NewManager(dir)
	require.NoError(t, err)
	sess, err := m2.Current()
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", sess.Token)
	assert.Equal(t, "Ada", sess.DisplayName)
	assert.False(t, sess.SavedAt.IsZero())
	assert.Equal(t, "tok-abc", m2.Token())
}

func TestTokenNotStoredInPlaintext(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)
	require.NoError(t, m.Save(Session{Token: "super-secret-token"}))

	blob, err := os.ReadFile(filepath.Join(dir, sessionFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "super-secret-token")
}

func TestKeyFilePermissions(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)
	require.NoError(t, m.Save(Session{Token: "t"}))

	info, err := os.Stat(filepath.Join(dir, keyFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestCurrentWithoutSession(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = m.Current()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Empty(t, m.Token())
}

func TestClearRemovesSession(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)
	require.NoError(t, m.Save(Session{Token: "t"}))
	require.NoError(t, m.Clear())

	_, err = m.Current()
	assert.ErrorIs(t, err, ErrNoSession)

	m2, err := NewManager(dir)
	require.NoError(t, err)
	_, err = m2.Current()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestTamperedSessionTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)
	require.NoError(t, m.Save(Session{Token: "t"}))

	path := filepath.Join(dir, sessionFileName)
	blob, err := os.ReadFile(path)
	require.NoError(t, err)
	flipped := strings.Map(func(r rune) rune {
		if r == 'A' {
			return 'B'
		}
		return 'A'
	}, string(blob[:8])) + string(blob[8:])
	require.NoError(t, os.WriteFile(path, []byte(flipped), 0600))

	m2, err := NewManager(dir)
	require.NoError(t, err)
	_, err = m2.Current()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSealOpenRejectsWrongKey(t *testing.T) {
	ks1 := keystore{dir: t.TempDir()}
	ks2 := keystore{dir: t.TempDir()}

	sealed, err := ks1.seal([]byte("payload"))
	require.NoError(t, err)

	_, err = ks2.open(sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = ks1.open("not base64 at all!")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}
