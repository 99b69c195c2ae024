package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func providers(t *testing.T) map[string]Provider {
	fs, err := NewFilesystemProvider(t.TempDir())
	require.NoError(t, err)
	return map[string]Provider{
		"memory":     NewMemoryProvider(),
		"filesystem": fs,
	}
}

func TestProviderSaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			_, err := p.Load(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, p.Save(ctx, "session:default", []byte(`{"a":1}`)))

			exists, err := p.Exists(ctx, "session:default")
			require.NoError(t, err)
			assert.True(t, exists)

			data, err := p.Load(ctx, "session:default")
			require.NoError(t, err)
			assert.JSONEq(t, `{"a":1}`, string(data))

			require.NoError(t, p.Delete(ctx, "session:default"))
			exists, err = p.Exists(ctx, "session:default")
			require.NoError(t, err)
			assert.False(t, exists)

			// Deleting a missing key is fine.
			assert.NoError(t, p.Delete(ctx, "session:default"))
		})
	}
}

func TestProviderListKeysSortedWithPrefix(t *testing.T) {
	ctx := context.Background()
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, p.Save(ctx, "session:b", []byte("{}")))
			require.NoError(t, p.Save(ctx, "session:a", []byte("{}")))
			require.NoError(t, p.Save(ctx, "other:c", []byte("{}")))

			keys, err := p.ListKeys(ctx, "session:")
			require.NoError(t, err)
			assert.Equal(t, []string{"session:a", "session:b"}, keys)

			all, err := p.ListKeys(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)
			assert.IsIncreasing(t, all)
		})
	}
}

func TestMemoryProviderDeepCopyIsolation(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()

	payload := []byte(`{"a":1}`)
	require.NoError(t, p.Save(ctx, "k", payload))
	payload[2] = 'x'

	loaded, err := p.Load(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(loaded))

	loaded[2] = 'y'
	again, err := p.Load(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(again))
}

func TestFilesystemKeySanitization(t *testing.T) {
	dir := t.TempDir()
	p, err := NewFilesystemProvider(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Save(ctx, "session:main/chat", []byte("{}")))

	_, err = os.Stat(filepath.Join(dir, "session__main_chat.json"))
	require.NoError(t, err, "colon maps to double underscore, slash to underscore")

	keys, err := p.ListKeys(ctx, "session:")
	require.NoError(t, err)
	assert.Equal(t, []string{"session:main/chat"}, keys)
}

func TestFilesystemAtomicWriteLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	p, err := NewFilesystemProvider(dir)
	require.NoError(t, err)

	require.NoError(t, p.Save(context.Background(), "k", []byte(`{"v":1}`)))
	require.NoError(t, p.Save(context.Background(), "k", []byte(`{"v":2}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "k.json", entries[0].Name())

	data, err := p.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(data))
}
