package autosave

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "relmap-backend/pkg/errors"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore(t.TempDir())

	require.NoError(t, s.Save(ctx, "b-session", []byte(`{"version":3}`)))
	require.NoError(t, s.Save(ctx, "a-session", []byte(`{}`)))
	require.NoError(t, s.Save(ctx, "b-session", []byte(`{"version":3,"app":"x"}`)))

	data, err := s.Load(ctx, "b-session")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":3,"app":"x"}`, string(data))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-session", "b-session"}, keys)

	require.NoError(t, s.Delete(ctx, "a-session"))
	_, err = s.Load(ctx, "a-session")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
	assert.True(t, pkgerrors.IsNotFound(s.Delete(ctx, "a-session")))
}

func TestStoreRejectsBadKeys(t *testing.T) {
	ctx := context.Background()
	s := NewStore(t.TempDir())

	for _, key := range []string{"", "../escape", "a/b", "with space"} {
		t.Run(key, func(t *testing.T) {
			assert.True(t, pkgerrors.IsValidation(s.Save(ctx, key, []byte(`{}`))))
			_, err := s.Load(ctx, key)
			assert.True(t, pkgerrors.IsValidation(err))
		})
	}
}
