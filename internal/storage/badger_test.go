package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBadgerStorage_RoundTrip(t *testing.T) {
	store, err := NewBadgerStorage(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	key := "invoices/abc_invoice.pdf"

	_, err = store.Download(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	require.NoError(t, store.Upload(ctx, key, []byte("%PDF-1.4"), "application/pdf"))

	data, err := store.Download(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
}

func TestBadgerStorage_InMemory(t *testing.T) {
	store, err := NewBadgerStorage("", zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, "k", []byte("v"), ""))
	data, err := store.Download(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(data))
}

func TestBadgerStorage_CanceledContext(t *testing.T) {
	store, err := NewBadgerStorage("", zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, store.Upload(ctx, "k", []byte("v"), ""))
}
