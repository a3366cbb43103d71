package crudlib

import (
	"github.com/objectstream/crudfs/internal/config"
	"github.com/objectstream/crudfs/internal/log_service"
	"github.com/objectstream/crudfs/internal/session"
	"github.com/objectstream/crudfs/internal/volume"
	"github.com/objectstream/crudfs/internal/wire"
	"github.com/pkg/errors"
)

func NewClient(cfg config.Config, ls log_service.LogService) *Client {
	sess := session.NewDefaultSession(cfg.Endpoint(), ls)
	return &Client{
		cfg:  cfg,
		ls:   ls,
		sess: sess,
		vol:  volume.NewDefaultManager(sess, cfg.MaxFiles, ls),
	}
}

// Format wipes the remote volume and installs an empty directory.
func (c *Client) Format() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vol.Format()
}

// Mount loads the directory from the remote volume.
func (c *Client) Mount() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vol.Mount()
}

// Unmount persists the directory and disconnects.
func (c *Client) Unmount() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vol.Unmount()
}

// Open returns a handle for name, claiming a directory slot on first open.
// A file closed earlier in this mount reopens at position 0 with its object
// identifier and length intact. Opening an already-open name fails.
func (c *Client) Open(name string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sess.EnsureConnected(); err != nil {
		return -1, err
	}

	if name == "" || len(name) > volume.MaxNameLength {
		return -1, errors.Wrapf(ErrInvalidArgument, "bad file name %q", name)
	}

	table := c.vol.Table()
	if fh := table.FindByName(name); fh >= 0 {
		entry := &table.Entries[fh]
		if entry.Open {
			return -1, errors.Wrapf(ErrAlreadyOpen, "%s", name)
		}
		entry.Position = 0
		entry.Open = true
		return fh, nil
	}

	fh := table.FindFree()
	if fh < 0 {
		return -1, errors.Wrapf(ErrTableFull, "no slot for %s", name)
	}

	table.Entries[fh] = volume.Entry{Name: name, Open: true}

	c.ls.Debug(log_service.LogEvent{
		Component: "crudlib",
		Message:   "Claimed directory slot",
		Metadata:  map[string]any{"name": name, "handle": fh},
	})

	return fh, nil
}

// Close clears the handle's open flag. The entry's object identifier and
// length survive for a later reopen within the same mount.
func (c *Client) Close(fh int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sess.EnsureConnected(); err != nil {
		return err
	}

	entry, err := c.entry(fh)
	if err != nil {
		return err
	}
	entry.Open = false
	return nil
}

// Read returns up to n bytes from the handle's current position. A short
// read at end of file is not an error.
func (c *Client) Read(fh int, n int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sess.EnsureConnected(); err != nil {
		return nil, err
	}

	entry, err := c.entry(fh)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "negative read count %d", n)
	}

	// A never-written file has no backing object to fetch.
	if entry.ObjectID == 0 || entry.Length == 0 {
		return []byte{}, nil
	}

	contents, err := c.fetch(entry)
	if err != nil {
		return nil, err
	}

	avail := int(entry.Length - entry.Position)
	if n > avail {
		n = avail
	}

	out := make([]byte, n)
	copy(out, contents[entry.Position:int(entry.Position)+n])
	entry.Position += uint32(n)
	return out, nil
}

// Write writes all of buf at the handle's current position and returns the
// byte count. A brand-new file gets its object created from buf; a write
// inside the current length updates the object in place; a write past the
// end recreates the object at the new size and deletes the old one. On any
// failing store operation the directory entry is left unchanged, except for
// the ErrPartialGrow case documented on that error.
func (c *Client) Write(fh int, buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sess.EnsureConnected(); err != nil {
		return -1, err
	}

	entry, err := c.entry(fh)
	if err != nil {
		return -1, err
	}
	if buf == nil {
		return -1, errors.Wrap(ErrInvalidArgument, "nil write buffer")
	}

	count := uint32(len(buf))

	// Case 1: no backing object yet. The write necessarily starts at
	// position 0, so the object is created from buf directly.
	if entry.ObjectID == 0 {
		if count > wire.MaxPayload {
			return -1, errors.Wrapf(ErrInvalidArgument, "write of %d bytes exceeds max object size", count)
		}
		resp, err := c.sess.Request(wire.OpCreate, 0, count, wire.FlagNone, buf)
		if err != nil {
			return -1, err
		}
		entry.ObjectID = resp.ObjectID
		entry.Length = count
		entry.Position = count
		return len(buf), nil
	}

	contents, err := c.fetch(entry)
	if err != nil {
		return -1, err
	}

	// Case 2: the write stays within the current length. Splice buf in and
	// update the existing object; identifier and length are unchanged.
	if entry.Position+count <= entry.Length {
		copy(contents[entry.Position:], buf)
		if _, err := c.sess.Request(wire.OpUpdate, entry.ObjectID, entry.Length, wire.FlagNone, contents); err != nil {
			return -1, err
		}
		entry.Position += count
		return len(buf), nil
	}

	// Case 3: the write extends the object. The store has no resize, so the
	// grown content gets a new object and the old one is deleted. CREATE
	// before DELETE: a failed create leaves the old object intact.
	newLength := entry.Position + count
	if newLength > wire.MaxPayload {
		return -1, errors.Wrapf(ErrInvalidArgument, "grow to %d bytes exceeds max object size", newLength)
	}

	grown := make([]byte, newLength)
	copy(grown, contents[:entry.Length])
	copy(grown[entry.Position:], buf)

	resp, err := c.sess.Request(wire.OpCreate, 0, newLength, wire.FlagNone, grown)
	if err != nil {
		return -1, err
	}

	oldID := entry.ObjectID
	_, deleteErr := c.sess.Request(wire.OpDelete, oldID, 0, wire.FlagNone, nil)

	// The data now lives only in the new object, so the entry adopts it even
	// when the delete failed; the old object is then leaked on the store.
	entry.ObjectID = resp.ObjectID
	entry.Length = newLength
	entry.Position += count

	if deleteErr != nil {
		c.ls.Warn(log_service.LogEvent{
			Component: "crudlib",
			Message:   "Superseded object left behind after grow",
			Metadata:  map[string]any{"name": entry.Name, "oldObjectID": oldID, "newObjectID": resp.ObjectID},
		})
		return -1, errors.Wrapf(ErrPartialGrow, "deleting object %d: %v", oldID, deleteErr)
	}

	return len(buf), nil
}

// Seek sets the handle's position to an absolute offset in [0, length].
func (c *Client) Seek(fh int, position int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sess.EnsureConnected(); err != nil {
		return err
	}

	entry, err := c.entry(fh)
	if err != nil {
		return err
	}
	if position < 0 || position > int64(entry.Length) {
		return errors.Wrapf(ErrInvalidArgument, "seek to %d outside [0, %d]", position, entry.Length)
	}

	entry.Position = uint32(position)
	return nil
}

// Stat reports the directory entry behind an open handle.
func (c *Client) Stat(fh int) (FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.entry(fh)
	if err != nil {
		return FileInfo{}, err
	}
	return fileInfo(fh, entry), nil
}

// List returns a snapshot of every occupied directory slot.
func (c *Client) List() []FileInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	var infos []FileInfo
	table := c.vol.Table()
	for i := range table.Entries {
		if table.Entries[i].Name == "" {
			continue
		}
		infos = append(infos, fileInfo(i, &table.Entries[i]))
	}
	return infos
}

func fileInfo(fh int, entry *volume.Entry) FileInfo {
	return FileInfo{
		Handle:   fh,
		Name:     entry.Name,
		ObjectID: entry.ObjectID,
		Length:   int64(entry.Length),
		Position: int64(entry.Position),
		Open:     entry.Open,
	}
}

func (c *Client) entry(fh int) (*volume.Entry, error) {
	table := c.vol.Table()
	if fh < 0 || fh >= len(table.Entries) {
		return nil, errors.Wrapf(ErrInvalidHandle, "handle %d out of range", fh)
	}
	entry := &table.Entries[fh]
	if !entry.Open {
		return nil, errors.Wrapf(ErrInvalidHandle, "handle %d is not open", fh)
	}
	return entry, nil
}

// fetch reads the handle's entire backing object.
func (c *Client) fetch(entry *volume.Entry) ([]byte, error) {
	contents := make([]byte, entry.Length)
	if _, err := c.sess.Request(wire.OpRead, entry.ObjectID, entry.Length, wire.FlagNone, contents); err != nil {
		return nil, errors.Wrapf(err, "fetching object %d", entry.ObjectID)
	}
	return contents, nil
}
