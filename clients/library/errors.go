package crudlib

import "errors"

var (
	ErrInvalidHandle   = errors.New("invalid file handle")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyOpen     = errors.New("file is already open")
	ErrTableFull       = errors.New("directory table is full")

	// ErrPartialGrow reports a grow-write whose replacement object was
	// created but whose superseded object could not be deleted. The new
	// object holds the written data and is installed in the directory entry;
	// the old object is leaked on the store.
	ErrPartialGrow = errors.New("grow write left superseded object behind")
)
