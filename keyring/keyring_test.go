package keyring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/yllada/portal-login/common"
)

func TestKeyring_SystemBackend(t *testing.T) {
	keyring.MockInit()
	common.SetConfigDir(t.TempDir())
	t.Cleanup(func() { common.SetConfigDir("") })

	k, err := New()
	require.NoError(t, err)
	assert.False(t, k.UsesFallback())

	require.NoError(t, k.Set(common.KeyringService, "jdoe", "s3cret"))

	got, err := k.Get(common.KeyringService, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	require.NoError(t, k.Delete(common.KeyringService, "jdoe"))
	_, err = k.Get(common.KeyringService, "jdoe")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, k.Delete(common.KeyringService, "jdoe"), ErrNotFound)
}

func TestKeyring_RejectsEmptyKeys(t *testing.T) {
	k, err := NewFileBacked(filepath.Join(t.TempDir(), "creds"))
	require.NoError(t, err)

	assert.ErrorIs(t, k.Set("", "jdoe", "pw"), ErrEmptyKey)
	_, err = k.Get(common.KeyringService, "")
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.Error(t, k.Set(common.KeyringService, "jdoe", ""))
}

func TestKeyring_FileFallbackPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), common.CredentialsFileName)

	k, err := NewFileBacked(path)
	require.NoError(t, err)
	require.True(t, k.UsesFallback())

	require.NoError(t, k.Set(common.KeyringService, "jdoe", "s3cret"))
	require.NoError(t, k.Set("SimulanisLogin", "jdoe", "legacy"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cret")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := NewFileBacked(path)
	require.NoError(t, err)

	got, err := reopened.Get(common.KeyringService, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	got, err = reopened.Get("SimulanisLogin", "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "legacy", got)
}

func TestFileStore_WrongSecretFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds")

	store, err := openFileStore(path, []byte("machine-a"))
	require.NoError(t, err)
	require.NoError(t, store.set("svc/jdoe", "pw"))

	_, err = openFileStore(path, []byte("machine-b"))
	assert.ErrorIs(t, err, common.ErrDecryption)
}

func TestFileStore_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds")
	require.NoError(t, os.WriteFile(path, []byte("c2hvcnQ="), 0600))

	_, err := openFileStore(path, []byte("machine"))
	assert.ErrorIs(t, err, common.ErrDecryption)
}
