package storage

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPutAndStat(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	exists, err := m.Exists(ctx, "blobs/sha256/abc")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, m.Put(ctx, "blobs/sha256/abc", strings.NewReader("hello"), 5, DefaultContentType))

	exists, err = m.Exists(ctx, "blobs/sha256/abc")
	require.NoError(t, err)
	assert.True(t, exists)

	size, ok, err := m.Stat(ctx, "blobs/sha256/abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), size)

	data, ok := m.Get("blobs/sha256/abc")
	assert.True(t, ok)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, 1, m.Len())
}

func TestMemoryOverwriteIsIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "k", strings.NewReader("content"), 7, ""))
	require.NoError(t, m.Put(ctx, "k", strings.NewReader("content"), 7, ""))

	assert.Equal(t, 1, m.Len())
	size, ok, err := m.Stat(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), size)
}

func TestMemoryConcurrentPuts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Same content under the same key from many goroutines; the
			// store must tolerate the race the way content addressing does.
			_ = m.Put(ctx, "same-key", strings.NewReader("identical"), 9, "")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, m.Len())
	data, ok := m.Get("same-key")
	assert.True(t, ok)
	assert.Equal(t, "identical", string(data))
}
