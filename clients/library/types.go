package crudlib

import (
	"sync"

	"github.com/objectstream/crudfs/internal/config"
	"github.com/objectstream/crudfs/internal/log_service"
	"github.com/objectstream/crudfs/internal/session"
	"github.com/objectstream/crudfs/internal/volume"
)

// Client is the file translation layer: it maps open/close/read/write/seek
// on local handles onto create/read/update/delete operations against remote
// objects, and format/mount/unmount onto the volume directory lifecycle.
//
// A handle is an index into the volume's directory table and stays valid
// only while that slot's open flag is set.
//
// mu serializes every public entry point: the directory table and the
// session are shared mutable state, and the session allows exactly one
// outstanding request on its single connection.
type Client struct {
	cfg  config.Config
	ls   log_service.LogService
	sess session.Session
	vol  volume.Manager

	mu sync.Mutex
}

// FileInfo is a snapshot of one directory entry.
type FileInfo struct {
	Handle   int
	Name     string
	ObjectID uint32
	Length   int64
	Position int64
	Open     bool
}
