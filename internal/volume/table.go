// Package volume owns the client-side directory of the remote volume: a
// fixed-size table mapping file names to object identifiers, persisted as
// the store's distinguished "priority" object and reloaded on mount.
package volume

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	// MaxNameLength is the longest file name a directory slot can hold.
	MaxNameLength = 127

	nameFieldSize = MaxNameLength + 1

	// EntrySize is the serialized size of one directory slot.
	EntrySize = nameFieldSize + 4 + 4 + 4 + 1

	// DefaultSlots is the directory capacity used when none is configured.
	DefaultSlots = 1024
)

// Entry is one directory slot. An empty Name marks a free slot; an ObjectID
// of zero marks a file whose backing object has not been created yet.
type Entry struct {
	Name     string
	ObjectID uint32
	Length   uint32
	Position uint32
	Open     bool
}

// Table is the in-memory directory. Its serialized form is slots x EntrySize
// bytes, big-endian, matching the wire's byte order: 128-byte zero-padded
// name, object id, length, position, open flag.
type Table struct {
	Entries []Entry
}

func NewTable(slots int) *Table {
	return &Table{Entries: make([]Entry, slots)}
}

// Size returns the serialized table size in bytes.
func (t *Table) Size() int {
	return len(t.Entries) * EntrySize
}

// Reset clears every slot.
func (t *Table) Reset() {
	for i := range t.Entries {
		t.Entries[i] = Entry{}
	}
}

// FindByName returns the slot index holding name, or -1.
func (t *Table) FindByName(name string) int {
	for i := range t.Entries {
		if t.Entries[i].Name == name {
			return i
		}
	}
	return -1
}

// FindFree returns the first empty slot index, or -1 when the table is full.
func (t *Table) FindFree() int {
	for i := range t.Entries {
		if t.Entries[i].Name == "" {
			return i
		}
	}
	return -1
}

func (t *Table) Serialize() []byte {
	data := make([]byte, t.Size())
	for i, e := range t.Entries {
		off := i * EntrySize
		copy(data[off:off+nameFieldSize], e.Name)
		binary.BigEndian.PutUint32(data[off+nameFieldSize:], e.ObjectID)
		binary.BigEndian.PutUint32(data[off+nameFieldSize+4:], e.Length)
		binary.BigEndian.PutUint32(data[off+nameFieldSize+8:], e.Position)
		if e.Open {
			data[off+EntrySize-1] = 1
		}
	}
	return data
}

// Parse loads the table from its serialized form. The data must be exactly
// the size of this table's geometry.
func (t *Table) Parse(data []byte) error {
	if len(data) != t.Size() {
		return errors.Wrapf(ErrBadTableSize, "%d bytes, want %d", len(data), t.Size())
	}

	for i := range t.Entries {
		off := i * EntrySize
		name := data[off : off+nameFieldSize]
		if end := bytes.IndexByte(name, 0); end >= 0 {
			name = name[:end]
		}
		t.Entries[i] = Entry{
			Name:     string(name),
			ObjectID: binary.BigEndian.Uint32(data[off+nameFieldSize:]),
			Length:   binary.BigEndian.Uint32(data[off+nameFieldSize+4:]),
			Position: binary.BigEndian.Uint32(data[off+nameFieldSize+8:]),
			Open:     data[off+EntrySize-1] != 0,
		}
	}
	return nil
}
