package crudlib

import (
	"bytes"
	"net"
	"strconv"
	"testing"

	"github.com/objectstream/crudfs/internal/config"
	"github.com/objectstream/crudfs/internal/log_service/logrus"
	"github.com/objectstream/crudfs/internal/objectstore"
	"github.com/objectstream/crudfs/internal/objectstore/inmemory"
	"github.com/objectstream/crudfs/internal/server"
	"github.com/objectstream/crudfs/internal/volume"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, store objectstore.Store) config.Config {
	t.Helper()
	ls := logruslog.NewLogrusLogService("test", "ERROR")
	srv := server.NewDefaultServer("127.0.0.1:0", store, ls)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	host, portStr, err := net.SplitHostPort(srv.Address())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Address = host
	cfg.Port = port
	cfg.MaxFiles = 16
	return cfg
}

func newTestClient(t *testing.T, cfg config.Config) *Client {
	t.Helper()
	return NewClient(cfg, logruslog.NewLogrusLogService("test", "ERROR"))
}

func formattedClient(t *testing.T) *Client {
	t.Helper()
	cfg := startServer(t, inmemory.NewInMemoryObjectStore())
	client := newTestClient(t, cfg)
	require.NoError(t, client.Format())
	return client
}

func TestWriteThenReadBack(t *testing.T) {
	client := formattedClient(t)

	fh, err := client.Open("greeting.txt")
	require.NoError(t, err)

	n, err := client.Write(fh, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	require.NoError(t, client.Seek(fh, 0))
	data, err := client.Read(fh, 5)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
}

func TestShortReadAtEndOfFile(t *testing.T) {
	client := formattedClient(t)

	fh, err := client.Open("short.dat")
	require.NoError(t, err)
	_, err = client.Write(fh, []byte("0123456789"))
	require.NoError(t, err)

	require.NoError(t, client.Seek(fh, 8))
	data, err := client.Read(fh, 100)
	require.NoError(t, err)
	require.Equal(t, []byte("89"), data)

	info, err := client.Stat(fh)
	require.NoError(t, err)
	require.Equal(t, int64(10), info.Position)

	// At end of file a read succeeds with zero bytes.
	data, err = client.Read(fh, 10)
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestReadOnFreshFileIsEmpty(t *testing.T) {
	client := formattedClient(t)

	fh, err := client.Open("untouched")
	require.NoError(t, err)

	data, err := client.Read(fh, 64)
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestGrowWrite(t *testing.T) {
	client := formattedClient(t)

	first := bytes.Repeat([]byte{0xAA}, 100)
	second := bytes.Repeat([]byte{0xBB}, 100)

	fh, err := client.Open("grow.dat")
	require.NoError(t, err)
	_, err = client.Write(fh, first)
	require.NoError(t, err)

	require.NoError(t, client.Seek(fh, 50))
	n, err := client.Write(fh, second)
	require.NoError(t, err)
	require.Equal(t, 100, n)

	info, err := client.Stat(fh)
	require.NoError(t, err)
	require.Equal(t, int64(150), info.Length)
	require.Equal(t, int64(150), info.Position)

	require.NoError(t, client.Seek(fh, 0))
	data, err := client.Read(fh, 150)
	require.NoError(t, err)
	require.Equal(t, first[:50], data[:50])
	require.Equal(t, second, data[50:])
}

func TestGrowWriteReplacesIdentifier(t *testing.T) {
	client := formattedClient(t)

	fh, err := client.Open("regrow.dat")
	require.NoError(t, err)
	_, err = client.Write(fh, []byte("abc"))
	require.NoError(t, err)

	before, err := client.Stat(fh)
	require.NoError(t, err)

	_, err = client.Write(fh, []byte("def"))
	require.NoError(t, err)

	after, err := client.Stat(fh)
	require.NoError(t, err)
	require.NotEqual(t, before.ObjectID, after.ObjectID)
	require.Equal(t, int64(6), after.Length)
}

func TestInPlaceWriteKeepsIdentifierAndLength(t *testing.T) {
	client := formattedClient(t)

	fh, err := client.Open("inplace.dat")
	require.NoError(t, err)
	_, err = client.Write(fh, []byte("immutable length"))
	require.NoError(t, err)

	before, err := client.Stat(fh)
	require.NoError(t, err)

	require.NoError(t, client.Seek(fh, 0))
	n, err := client.Write(fh, []byte("IMMUT"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	after, err := client.Stat(fh)
	require.NoError(t, err)
	require.Equal(t, before.ObjectID, after.ObjectID)
	require.Equal(t, before.Length, after.Length)
	require.Equal(t, int64(5), after.Position)

	require.NoError(t, client.Seek(fh, 0))
	data, err := client.Read(fh, int(after.Length))
	require.NoError(t, err)
	require.Equal(t, []byte("IMMUTable length"), data)
}

func TestDirectoryDurability(t *testing.T) {
	cfg := startServer(t, inmemory.NewInMemoryObjectStore())

	client := newTestClient(t, cfg)
	require.NoError(t, client.Format())

	files := map[string][]byte{
		"alpha.txt": []byte("first file"),
		"beta.bin":  bytes.Repeat([]byte{0x42}, 300),
		"gamma":     []byte("g"),
	}
	for name, content := range files {
		fh, err := client.Open(name)
		require.NoError(t, err)
		_, err = client.Write(fh, content)
		require.NoError(t, err)
		require.NoError(t, client.Close(fh))
	}
	require.NoError(t, client.Unmount())

	// A fresh session must reproduce every directory entry and content.
	fresh := newTestClient(t, cfg)
	require.NoError(t, fresh.Mount())

	infos := fresh.List()
	require.Len(t, infos, len(files))
	for _, info := range infos {
		content, ok := files[info.Name]
		require.True(t, ok, info.Name)
		require.Equal(t, int64(len(content)), info.Length)
		require.NotZero(t, info.ObjectID)

		fh, err := fresh.Open(info.Name)
		require.NoError(t, err)
		data, err := fresh.Read(fh, len(content))
		require.NoError(t, err)
		require.Equal(t, content, data)
		require.NoError(t, fresh.Close(fh))
	}
}

func TestReopenKeepsIdentifierAndLength(t *testing.T) {
	client := formattedClient(t)

	fh, err := client.Open("reopen.me")
	require.NoError(t, err)
	_, err = client.Write(fh, []byte("still here"))
	require.NoError(t, err)

	before, err := client.Stat(fh)
	require.NoError(t, err)
	require.NoError(t, client.Close(fh))

	fh2, err := client.Open("reopen.me")
	require.NoError(t, err)
	require.Equal(t, fh, fh2)

	after, err := client.Stat(fh2)
	require.NoError(t, err)
	require.Equal(t, before.ObjectID, after.ObjectID)
	require.Equal(t, before.Length, after.Length)
	require.Equal(t, int64(0), after.Position)
}

func TestTableExhaustion(t *testing.T) {
	cfg := startServer(t, inmemory.NewInMemoryObjectStore())
	cfg.MaxFiles = 2
	client := newTestClient(t, cfg)
	require.NoError(t, client.Format())

	_, err := client.Open("one")
	require.NoError(t, err)
	_, err = client.Open("two")
	require.NoError(t, err)

	_, err = client.Open("three")
	require.ErrorIs(t, err, ErrTableFull)
}

func TestDoubleOpenRejected(t *testing.T) {
	client := formattedClient(t)

	_, err := client.Open("solo")
	require.NoError(t, err)

	_, err = client.Open("solo")
	require.ErrorIs(t, err, ErrAlreadyOpen)
}

func TestInvalidArguments(t *testing.T) {
	client := formattedClient(t)

	_, err := client.Open("")
	require.ErrorIs(t, err, ErrInvalidArgument)

	longName := string(bytes.Repeat([]byte{'x'}, volume.MaxNameLength+1))
	_, err = client.Open(longName)
	require.ErrorIs(t, err, ErrInvalidArgument)

	fh, err := client.Open("valid")
	require.NoError(t, err)

	_, err = client.Read(fh, -1)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = client.Write(fh, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)

	require.ErrorIs(t, client.Seek(fh, -1), ErrInvalidArgument)
	require.ErrorIs(t, client.Seek(fh, 1), ErrInvalidArgument)
}

func TestInvalidHandles(t *testing.T) {
	client := formattedClient(t)

	_, err := client.Read(-1, 1)
	require.ErrorIs(t, err, ErrInvalidHandle)
	_, err = client.Read(9999, 1)
	require.ErrorIs(t, err, ErrInvalidHandle)

	fh, err := client.Open("closed.soon")
	require.NoError(t, err)
	require.NoError(t, client.Close(fh))

	_, err = client.Write(fh, []byte("x"))
	require.ErrorIs(t, err, ErrInvalidHandle)
	require.ErrorIs(t, client.Seek(fh, 0), ErrInvalidHandle)
	require.ErrorIs(t, client.Close(fh), ErrInvalidHandle)
}

func TestSeekWithinFile(t *testing.T) {
	client := formattedClient(t)

	fh, err := client.Open("seek.dat")
	require.NoError(t, err)
	_, err = client.Write(fh, []byte("0123456789"))
	require.NoError(t, err)

	// Both ends of [0, length] are valid.
	require.NoError(t, client.Seek(fh, 0))
	require.NoError(t, client.Seek(fh, 10))
	require.ErrorIs(t, client.Seek(fh, 11), ErrInvalidArgument)
}

// failingDeleteStore rejects every delete, forcing the grow path's
// create-then-delete sequence to half-complete.
type failingDeleteStore struct {
	objectstore.Store
}

func (s *failingDeleteStore) Delete(id uint32) error {
	return errors.New("injected delete failure")
}

func TestPartialGrowFailure(t *testing.T) {
	cfg := startServer(t, &failingDeleteStore{Store: inmemory.NewInMemoryObjectStore()})
	client := newTestClient(t, cfg)
	require.NoError(t, client.Format())

	fh, err := client.Open("leaky.dat")
	require.NoError(t, err)
	_, err = client.Write(fh, []byte("aaaa"))
	require.NoError(t, err)

	before, err := client.Stat(fh)
	require.NoError(t, err)

	_, err = client.Write(fh, []byte("bbbb"))
	require.ErrorIs(t, err, ErrPartialGrow)

	// The replacement object is installed despite the reported failure; the
	// written data is intact under the new identifier.
	after, err := client.Stat(fh)
	require.NoError(t, err)
	require.NotEqual(t, before.ObjectID, after.ObjectID)
	require.Equal(t, int64(8), after.Length)

	require.NoError(t, client.Seek(fh, 0))
	data, err := client.Read(fh, 8)
	require.NoError(t, err)
	require.Equal(t, []byte("aaaabbbb"), data)
}

func TestFailedWriteLeavesEntryUnchanged(t *testing.T) {
	cfg := startServer(t, inmemory.NewInMemoryObjectStore())
	client := newTestClient(t, cfg)
	require.NoError(t, client.Format())

	fh, err := client.Open("huge")
	require.NoError(t, err)
	_, err = client.Write(fh, []byte("seed"))
	require.NoError(t, err)

	before, err := client.Stat(fh)
	require.NoError(t, err)

	// Growing past the 24-bit length field is rejected client-side.
	require.NoError(t, client.Seek(fh, 4))
	huge := make([]byte, 1<<24)
	_, err = client.Write(fh, huge)
	require.ErrorIs(t, err, ErrInvalidArgument)

	after, err := client.Stat(fh)
	require.NoError(t, err)
	require.Equal(t, before, after)
}
