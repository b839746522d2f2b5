package download

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls atomic.Int32
	data  []byte
	err   error
}

func (s *countingSource) FetchVideo(context.Context, string) ([]byte, error) {
	s.calls.Add(1)
	return s.data, s.err
}

func TestFetch(t *testing.T) {
	src := &countingSource{data: []byte("mp4 bytes")}
	d, err := New(src, 1<<20)
	require.NoError(t, err)
	defer d.Close()

	data, err := d.Fetch(context.Background(), "https://x/video.mp4")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp4 bytes"), data)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestFetchEmptyURL(t *testing.T) {
	src := &countingSource{}
	d, err := New(src, 0)
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyURL)
	assert.Zero(t, src.calls.Load())
}

func TestFetchError(t *testing.T) {
	boom := errors.New("http 404")
	d, err := New(&countingSource{err: boom}, 1<<20)
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Fetch(context.Background(), "https://x/missing.mp4")
	assert.ErrorIs(t, err, boom)
}
