package volume_test

import (
	"testing"

	"github.com/objectstream/crudfs/internal/log_service/logrus"
	"github.com/objectstream/crudfs/internal/objectstore/inmemory"
	"github.com/objectstream/crudfs/internal/server"
	"github.com/objectstream/crudfs/internal/session"
	"github.com/objectstream/crudfs/internal/volume"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) string {
	t.Helper()
	ls := logruslog.NewLogrusLogService("test", "ERROR")
	srv := server.NewDefaultServer("127.0.0.1:0", inmemory.NewInMemoryObjectStore(), ls)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })
	return srv.Address()
}

func newManager(t *testing.T, addr string, slots int) *volume.DefaultManager {
	t.Helper()
	ls := logruslog.NewLogrusLogService("test", "ERROR")
	sess := session.NewDefaultSession(addr, ls)
	return volume.NewDefaultManager(sess, slots, ls)
}

func TestFormatInstallsEmptyDirectory(t *testing.T) {
	addr := startServer(t)
	mgr := newManager(t, addr, 8)

	require.False(t, mgr.Mounted())
	require.NoError(t, mgr.Format())
	require.True(t, mgr.Mounted())
	require.Len(t, mgr.Table().Entries, 8)
	require.Equal(t, -1, mgr.Table().FindByName("anything"))
}

func TestMountWithoutFormatFails(t *testing.T) {
	addr := startServer(t)
	mgr := newManager(t, addr, 8)

	err := mgr.Mount()
	require.Error(t, err)
	require.False(t, mgr.Mounted())
}

func TestUnmountRequiresMount(t *testing.T) {
	addr := startServer(t)
	mgr := newManager(t, addr, 8)

	require.ErrorIs(t, mgr.Unmount(), volume.ErrNotMounted)
}

func TestDirectorySurvivesUnmountMount(t *testing.T) {
	addr := startServer(t)

	mgr := newManager(t, addr, 8)
	require.NoError(t, mgr.Format())
	mgr.Table().Entries[2] = volume.Entry{Name: "kept.txt", ObjectID: 5, Length: 99}
	require.NoError(t, mgr.Unmount())
	require.False(t, mgr.Mounted())

	// A fresh session against the same store sees the persisted table.
	fresh := newManager(t, addr, 8)
	require.NoError(t, fresh.Mount())
	require.Equal(t, volume.Entry{Name: "kept.txt", ObjectID: 5, Length: 99}, fresh.Table().Entries[2])
}

func TestMountRejectsGeometryMismatch(t *testing.T) {
	addr := startServer(t)

	mgr := newManager(t, addr, 4)
	require.NoError(t, mgr.Format())
	require.NoError(t, mgr.Unmount())

	other := newManager(t, addr, 8)
	require.ErrorIs(t, other.Mount(), volume.ErrBadTableSize)
}
