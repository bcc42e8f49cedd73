package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/jartrack/internal/domain"
)

func TestSaveAndOpen(t *testing.T) {
	store, err := New(t.TempDir(), 0)
	require.NoError(t, err)
	ctx := context.Background()
	data := []byte("fake png data")

	key, err := store.Save(ctx, "recipe_3", "image/png", bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "recipe_3_"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	rc, mimeType, err := store.Open(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "image/png", mimeType)

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSaveRejectsUnsupportedType(t *testing.T) {
	store, err := New(t.TempDir(), 0)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "recipe_1", "application/pdf", strings.NewReader("%PDF"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSaveRejectsOversizeImage(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 8)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "recipe_1", "image/jpeg", strings.NewReader("123456789"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDelete(t *testing.T) {
	store, err := New(t.TempDir(), 0)
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Save(ctx, "recipe_1", "image/jpeg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, key))

	_, _, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, key), domain.ErrNotFound)
}

func TestRejectsPathTraversal(t *testing.T) {
	store, err := New(t.TempDir(), 0)
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"../etc/passwd", "a/../../b.jpg", "", "..", "/abs.jpg"} {
		_, _, err := store.Open(ctx, key)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, key)
		assert.ErrorIs(t, store.Delete(ctx, key), domain.ErrInvalidArgument, key)
	}
}
