package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageaudit/pageaudit/internal/audit"
)

type seqIDs struct{ n int }

func (s *seqIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("id-%03d", s.n), nil
}

func record(url string, score int, userID string, created time.Time) audit.Result {
	return audit.Result{
		URL:       url,
		Overall:   score,
		UserID:    userID,
		CreatedAt: created,
	}
}

func TestMemoryStoreSaveAndGet(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(&seqIDs{})
	ctx := context.Background()

	id, err := store.Save(ctx, record("https://example.com", 85, "u1", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "id-001", id)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.URL)
	assert.Equal(t, 85, got.Overall)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(&seqIDs{})
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, audit.ErrNotFound)
}

func TestMemoryStoreSaveKeepsExistingID(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(&seqIDs{})
	rec := record("https://example.com", 70, "", time.Now())
	rec.ID = "fixed"
	id, err := store.Save(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)
}

func TestMemoryStoreListOrderAndFilters(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(&seqIDs{})
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Save(ctx, record("https://alpha.example.com", 90, "u1", base))
	require.NoError(t, err)
	_, err = store.Save(ctx, record("https://beta.example.com", 55, "u2", base.Add(time.Hour)))
	require.NoError(t, err)
	_, err = store.Save(ctx, record("https://alpha.example.com/page", 72, "u1", base.Add(2*time.Hour)))
	require.NoError(t, err)

	all, err := store.List(ctx, audit.ListFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "https://alpha.example.com/page", all[0].URL)
	assert.Equal(t, "https://beta.example.com", all[1].URL)
	assert.Equal(t, "https://alpha.example.com", all[2].URL)

	byURL, err := store.List(ctx, audit.ListFilters{URLSubstring: "alpha"})
	require.NoError(t, err)
	assert.Len(t, byURL, 2)

	byScore, err := store.List(ctx, audit.ListFilters{MinScore: 70})
	require.NoError(t, err)
	assert.Len(t, byScore, 2)

	byUser, err := store.List(ctx, audit.ListFilters{UserID: "u2"})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, 55, byUser[0].Overall)

	byDate, err := store.List(ctx, audit.ListFilters{
		DateFrom: base.Add(30 * time.Minute),
		DateTo:   base.Add(90 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "https://beta.example.com", byDate[0].URL)
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(&seqIDs{})
	ctx := context.Background()

	id, err := store.Save(ctx, record("https://example.com", 80, "", time.Now()))
	require.NoError(t, err)

	ok, err := store.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, audit.ErrNotFound)
}
