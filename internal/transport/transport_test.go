package transport

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// chunkWriter accepts at most chunk bytes per call, exercising the
// short-write loop.
type chunkWriter struct {
	buf   bytes.Buffer
	chunk int
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	if len(p) > w.chunk {
		p = p[:w.chunk]
	}
	return w.buf.Write(p)
}

// stuckWriter reports progress of zero bytes.
type stuckWriter struct{}

func (stuckWriter) Write(p []byte) (int, error) { return 0, nil }

func TestWriteFullLoopsOverShortWrites(t *testing.T) {
	w := &chunkWriter{chunk: 3}
	data := []byte("descriptor plus payload")

	require.NoError(t, WriteFull(w, data))
	require.Equal(t, data, w.buf.Bytes())
}

func TestWriteFullFailsWithoutProgress(t *testing.T) {
	err := WriteFull(stuckWriter{}, []byte("data"))
	require.ErrorIs(t, err, io.ErrShortWrite)
}

func TestWriteFullEmpty(t *testing.T) {
	require.NoError(t, WriteFull(stuckWriter{}, nil))
}
