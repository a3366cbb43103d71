package volume

import (
	"github.com/objectstream/crudfs/internal/log_service"
	"github.com/objectstream/crudfs/internal/session"
	"github.com/objectstream/crudfs/internal/wire"
	"github.com/pkg/errors"
)

type Manager interface {
	Format() error
	Mount() error
	Unmount() error
	Mounted() bool
	Table() *Table
}

// DefaultManager drives the format/mount/unmount lifecycle over a session
// and owns the in-memory directory table between them.
type DefaultManager struct {
	sess    session.Session
	ls      log_service.LogService
	table   *Table
	mounted bool
}

func NewDefaultManager(sess session.Session, slots int, ls log_service.LogService) *DefaultManager {
	if slots <= 0 {
		slots = DefaultSlots
	}
	return &DefaultManager{
		sess:  sess,
		ls:    ls,
		table: NewTable(slots),
	}
}

func (m *DefaultManager) Mounted() bool {
	return m.mounted
}

func (m *DefaultManager) Table() *Table {
	return m.table
}

// Format wipes the remote store, then creates the directory object from an
// empty table. The in-memory table is only replaced once both remote
// operations have succeeded, so a failed format does not partially apply.
func (m *DefaultManager) Format() error {
	if err := m.sess.EnsureConnected(); err != nil {
		return err
	}

	if _, err := m.sess.Request(wire.OpFormat, 0, 0, wire.FlagNone, nil); err != nil {
		return errors.Wrap(err, "format")
	}

	fresh := NewTable(len(m.table.Entries))
	data := fresh.Serialize()
	if _, err := m.sess.Request(wire.OpCreate, 0, uint32(len(data)), wire.FlagPriorityObject, data); err != nil {
		return errors.Wrap(err, "creating directory object")
	}

	m.table = fresh
	m.mounted = true

	m.ls.Info(log_service.LogEvent{
		Component: "volume",
		Message:   "Volume formatted",
		Metadata:  map[string]any{"slots": len(m.table.Entries), "tableBytes": len(data)},
	})

	return nil
}

// Mount loads the directory object into the in-memory table. A failed read
// means no filesystem is present and surfaces as an error rather than
// proceeding with a stale table.
func (m *DefaultManager) Mount() error {
	if err := m.sess.EnsureConnected(); err != nil {
		return err
	}

	size := uint32(m.table.Size())
	buf := make([]byte, size)
	resp, err := m.sess.Request(wire.OpRead, 0, size, wire.FlagPriorityObject, buf)
	if err != nil {
		return errors.Wrap(err, "reading directory object")
	}
	if resp.Length != size {
		return errors.Wrapf(ErrBadTableSize, "directory object is %d bytes, want %d", resp.Length, size)
	}

	if err := m.table.Parse(buf); err != nil {
		return err
	}
	m.mounted = true

	m.ls.Info(log_service.LogEvent{
		Component: "volume",
		Message:   "Volume mounted",
		Metadata:  map[string]any{"slots": len(m.table.Entries)},
	})

	return nil
}

// Unmount persists the directory table, then closes the session. A failed
// persist aborts before CLOSE: losing directory state must not be masked by
// a successful disconnect.
func (m *DefaultManager) Unmount() error {
	if !m.mounted {
		return ErrNotMounted
	}

	data := m.table.Serialize()
	if _, err := m.sess.Request(wire.OpUpdate, 0, uint32(len(data)), wire.FlagPriorityObject, data); err != nil {
		return errors.Wrap(err, "persisting directory object")
	}

	if _, err := m.sess.Request(wire.OpClose, 0, 0, wire.FlagNone, nil); err != nil {
		return errors.Wrap(err, "close")
	}
	m.mounted = false

	m.ls.Info(log_service.LogEvent{
		Component: "volume",
		Message:   "Volume unmounted",
	})

	return nil
}

var _ Manager = (*DefaultManager)(nil)
