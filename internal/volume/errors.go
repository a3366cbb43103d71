package volume

import "errors"

var (
	ErrNotMounted   = errors.New("volume is not mounted")
	ErrBadTableSize = errors.New("directory object size does not match table geometry")
)
