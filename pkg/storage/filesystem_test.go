package storage

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckExtension(t *testing.T) {
	ext, err := CheckExtension("Return-March.XLSX", []string{"pdf", "xlsx"})
	require.NoError(t, err)
	assert.Equal(t, "xlsx", ext)

	_, err = CheckExtension("payload.exe", []string{"pdf", "xlsx"})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), 0)
	require.NoError(t, err)

	rel, err := store.SaveUpload("membership_cards", "my card.png", strings.NewReader("png-bytes"), []string{"png"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "membership_cards/"))
	assert.True(t, strings.HasSuffix(rel, "_my_card.png"))

	f, err := store.Open(rel)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(rel))
	_, err = store.Open(rel)
	require.Error(t, err)
}

func TestLocalStorageEnforcesSizeLimit(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), 4)
	require.NoError(t, err)

	_, err = store.SaveUpload("nssf_returns", "big.csv", strings.NewReader("0123456789"), []string{"csv"})
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestLocalStorageStaysInsideRoot(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), 0)
	require.NoError(t, err)

	rel, err := store.SaveUpload("../../outside", "x.pdf", strings.NewReader("x"), []string{"pdf"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.baseDir, "outside", filepath.Base(rel)), store.resolve(rel))
}
