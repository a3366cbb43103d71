package volume

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableSerializeRoundTrip(t *testing.T) {
	table := NewTable(8)
	table.Entries[0] = Entry{Name: "readme.txt", ObjectID: 12, Length: 512, Position: 100, Open: true}
	table.Entries[3] = Entry{Name: strings.Repeat("n", MaxNameLength), ObjectID: 47, Length: 1, Position: 0, Open: false}
	table.Entries[7] = Entry{Name: "tail.dat", ObjectID: 0, Length: 0, Position: 0, Open: true}

	data := table.Serialize()
	require.Len(t, data, 8*EntrySize)

	loaded := NewTable(8)
	require.NoError(t, loaded.Parse(data))
	require.Equal(t, table.Entries, loaded.Entries)
}

func TestTableParseRejectsWrongSize(t *testing.T) {
	table := NewTable(4)

	err := table.Parse(make([]byte, 3*EntrySize))
	require.ErrorIs(t, err, ErrBadTableSize)

	err = table.Parse(make([]byte, 4*EntrySize+1))
	require.ErrorIs(t, err, ErrBadTableSize)
}

func TestTableFind(t *testing.T) {
	table := NewTable(3)
	table.Entries[0] = Entry{Name: "a"}
	table.Entries[1] = Entry{Name: "b"}

	require.Equal(t, 1, table.FindByName("b"))
	require.Equal(t, -1, table.FindByName("missing"))
	require.Equal(t, 2, table.FindFree())

	table.Entries[2] = Entry{Name: "c"}
	require.Equal(t, -1, table.FindFree())
}

func TestTableReset(t *testing.T) {
	table := NewTable(2)
	table.Entries[0] = Entry{Name: "a", ObjectID: 5, Length: 10, Position: 3, Open: true}

	table.Reset()
	require.Equal(t, Entry{}, table.Entries[0])
	require.Equal(t, Entry{}, table.Entries[1])
}
