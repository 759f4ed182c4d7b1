package wallet

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	w, err := Generate()
	require.NoError(t, err)

	assert.True(t, ValidAddress(w.Address))
	assert.Len(t, w.PrivateKeyHex(), 64)

	w2, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, w.Address, w2.Address)
}

func TestFromPrivateKeyHex(t *testing.T) {
	t.Parallel()

	w, err := Generate()
	require.NoError(t, err)

	restored, err := FromPrivateKeyHex(w.PrivateKeyHex())
	require.NoError(t, err)
	assert.Equal(t, w.Address, restored.Address)

	// 0x prefix is accepted.
	restored, err = FromPrivateKeyHex("0x" + w.PrivateKeyHex())
	require.NoError(t, err)
	assert.Equal(t, w.Address, restored.Address)

	_, err = FromPrivateKeyHex("zz")
	assert.Error(t, err)
}

func TestValidAddress(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidAddress("0x2af47a65da8CD66729b4989dB595268E6b3a336E"))
	assert.False(t, ValidAddress(""))
	assert.False(t, ValidAddress("not-an-address"))
	assert.False(t, ValidAddress("0x123"))
}

func TestKeystoreRoundTrip(t *testing.T) {
	t.Parallel()

	w, err := Generate()
	require.NoError(t, err)

	blob, err := EncryptKey(w.PrivateKeyHex(), "hunter2")
	require.NoError(t, err)

	keyHex, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, w.PrivateKeyHex(), keyHex)
}

func TestKeystoreWrongPassword(t *testing.T) {
	t.Parallel()

	blob, err := EncryptKey("00112233", "correct")
	require.NoError(t, err)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}

func TestCustodian_InMemory(t *testing.T) {
	t.Parallel()

	c, err := NewCustodian("", "", testLogger())
	require.NoError(t, err)

	_, ok := c.Active()
	assert.False(t, ok)

	w, err := c.CreateWallet()
	require.NoError(t, err)

	active, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, w.Address, active.Address)
}

func TestCustodian_PersistAndRestore(t *testing.T) {
	t.Parallel()

	keyPath := filepath.Join(t.TempDir(), "wallet.key")

	c, err := NewCustodian(keyPath, "hunter2", testLogger())
	require.NoError(t, err)

	w, err := c.CreateWallet()
	require.NoError(t, err)

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A new custodian over the same keystore restores the wallet.
	restored, err := NewCustodian(keyPath, "hunter2", testLogger())
	require.NoError(t, err)
	active, ok := restored.Active()
	require.True(t, ok)
	assert.Equal(t, w.Address, active.Address)

	// The wrong password must not yield a wallet.
	_, err = NewCustodian(keyPath, "wrong", testLogger())
	assert.Error(t, err)
}
