package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePutUsesPassInsert(t *testing.T) {
	t.Parallel()

	called := false
	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			called = true
			assert.Equal(t, context.Background(), ctx)
			assert.Equal(t, []string{"insert", "-m", "-f", "landchain/keystore/0x52908400098527886e0f7030069857d2e4169ee7"}, args)
			assert.Equal(t, "top-secret\n", input)
			return "", "", nil
		},
	}

	err := store.Put(context.Background(), "landchain/keystore/0x52908400098527886e0f7030069857d2e4169ee7", "top-secret")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestStoreGetUsesPassShowAndTrimsTrailingNewline(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"show", "landchain/keystore/0x52908400098527886e0f7030069857d2e4169ee7"}, args)
			assert.Empty(t, input)
			return "top-secret\n", "", nil
		},
	}

	value, err := store.Get(context.Background(), "landchain/keystore/0x52908400098527886e0f7030069857d2e4169ee7")
	require.NoError(t, err)
	assert.Equal(t, "top-secret", value)
}

func TestStoreDeleteUsesPassRemove(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"rm", "-f", "landchain/keystore/0x52908400098527886e0f7030069857d2e4169ee7"}, args)
			assert.Empty(t, input)
			return "", "", nil
		},
	}

	err := store.Delete(context.Background(), "landchain/keystore/0x52908400098527886e0f7030069857d2e4169ee7")
	require.NoError(t, err)
}

func TestStoreGetReturnsClearError(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "entry not found", errors.New("exit status 1")
		},
	}

	_, err := store.Get(context.Background(), "landchain/keystore/0x52908400098527886e0f7030069857d2e4169ee7")
	require.Error(t, err)
	assert.ErrorContains(t, err, "pass get")
	assert.ErrorContains(t, err, "landchain/keystore/0x52908400098527886e0f7030069857d2e4169ee7")
	assert.ErrorContains(t, err, "entry not found")
}

func TestStoreGetMapsMissingEntryToNotFound(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "Error: landchain/keystore/0x52908400098527886e0f7030069857d2e4169ee7 is not in the password store.", errors.New("exit status 1")
		},
	}

	_, err := store.Get(context.Background(), "landchain/keystore/0x52908400098527886e0f7030069857d2e4169ee7")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreLowercasesEntryNames(t *testing.T) {
	t.Parallel()

	var got []string
	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			got = args
			return "pw\n", "", nil
		},
	}

	_, err := store.Get(context.Background(), "landchain/keystore/0x52908400098527886E0F7030069857D2E4169EE7")
	require.NoError(t, err)
	assert.Equal(t, []string{"show", "landchain/keystore/0x52908400098527886e0f7030069857d2e4169ee7"}, got)
}

func TestStoreRejectsKeysOutsideKeystoreNamespace(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(context.Context, string, ...string) (string, string, error) {
			t.Fatal("pass must not run for an invalid key")
			return "", "", nil
		},
	}

	for _, key := range []string{"", "landchain/keystore/0xabc", "personal/bank", "landchain/keystore/52908400098527886e0f7030069857d2e4169ee7"} {
		require.ErrorIs(t, store.Put(context.Background(), key, "pw"), domain.ErrInvalidSecretKey, key)
		_, err := store.Get(context.Background(), key)
		require.ErrorIs(t, err, domain.ErrInvalidSecretKey, key)
		require.ErrorIs(t, store.Delete(context.Background(), key), domain.ErrInvalidSecretKey, key)
	}
}
