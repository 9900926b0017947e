package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageaudit/pageaudit/internal/storage/memory"
)

func TestPutObjectReturnsURI(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	uri, err := store.PutObject(context.Background(), "audits/a1/mobile.png", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "memory://audits/a1/mobile.png", uri)

	got, ok := store.Object("audits/a1/mobile.png")
	require.True(t, ok)
	assert.Equal(t, []byte("png"), got)
}

func TestPutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	data := []byte("original")
	_, err := store.PutObject(context.Background(), "p", "", data)
	require.NoError(t, err)

	data[0] = 'X'
	got, _ := store.Object("p")
	assert.Equal(t, []byte("original"), got)
}
