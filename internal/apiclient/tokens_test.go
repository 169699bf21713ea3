package apiclient

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStoreRoundTrip(t *testing.T) {
	type testCase struct {
		name  string
		store func(t *testing.T) TokenStore
	}
	testCases := []testCase{
		{
			name:  "memory",
			store: func(t *testing.T) TokenStore { return NewMemoryTokenStore("") },
		},
		{
			name:  "file",
			store: func(t *testing.T) TokenStore { return NewFileTokenStore(filepath.Join(t.TempDir(), "state")) },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			store := tc.store(t)

			token, err := store.Token(ctx)
			require.NoError(t, err)
			assert.Empty(t, token)

			require.NoError(t, store.SetToken(ctx, "T1"))
			token, err = store.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "T1", token)

			require.NoError(t, store.SetToken(ctx, "T2"))
			token, _ = store.Token(ctx)
			assert.Equal(t, "T2", token)

			require.NoError(t, store.SetToken(ctx, ""))
			token, err = store.Token(ctx)
			require.NoError(t, err)
			assert.Empty(t, token)

			require.NoError(t, store.SetToken(ctx, ""))
		})
	}
}

func TestFileTokenStorePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	store := NewFileTokenStore(dir)
	require.NoError(t, store.SetToken(context.Background(), "secret"))

	info, err := os.Stat(filepath.Join(dir, TokenKey))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, store.SetToken(context.Background(), ""))
	_, err = os.Stat(filepath.Join(dir, TokenKey))
	assert.True(t, os.IsNotExist(err))
}
