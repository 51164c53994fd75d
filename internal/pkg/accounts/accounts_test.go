package accounts

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		invalid bool
	}{
		{in: "@foundmyfitness", want: "@foundmyfitness"},
		{in: "  BioHacking.Brittany ", want: "@biohacking.brittany"},
		{in: "under_score", want: "@under_score"},
		{in: "", invalid: true},
		{in: "@", invalid: true},
		{in: "two words", invalid: true},
		{in: "@@double", invalid: true},
		{in: "a234567890123456789012345678901", invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.invalid {
				assert.True(t, errors.Is(err, ErrInvalidHandle))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_AddListRemove(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	h, err := s.Add(ctx, "u1", "FoundMyFitness")
	require.NoError(t, err)
	assert.Equal(t, "@foundmyfitness", h)

	_, err = s.Add(ctx, "u1", "@biohackingbrittany")
	require.NoError(t, err)
	_, err = s.Add(ctx, "u1", "@foundmyfitness")
	require.NoError(t, err)

	list, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"@biohackingbrittany", "@foundmyfitness"}, list)

	other, err := s.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)

	removed, err := s.Remove(ctx, "u1", "foundmyfitness")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove(ctx, "u1", "foundmyfitness")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStore_Limit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < MaxPerUser; i++ {
		_, err := s.Add(ctx, "u1", fmt.Sprintf("acct%d", i))
		require.NoError(t, err)
	}

	_, err := s.Add(ctx, "u1", "one.too.many")
	assert.True(t, errors.Is(err, ErrLimitReached))

	// Re-adding an existing handle at the cap is still fine.
	_, err = s.Add(ctx, "u1", "acct0")
	assert.NoError(t, err)
}

func TestStore_Unavailable(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	_, err := s.List(ctx, "u1")
	assert.True(t, errors.Is(err, ErrUnavailable))

	_, err = s.Add(ctx, "u1", "valid")
	assert.True(t, errors.Is(err, ErrUnavailable))

	_, err = s.Add(ctx, "u1", "not valid!")
	assert.True(t, errors.Is(err, ErrInvalidHandle))
}
