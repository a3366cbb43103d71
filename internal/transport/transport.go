// Package transport defines reliable delivery of protocol descriptors and
// their payloads over a byte stream that may deliver partial reads and
// writes. It is agnostic of descriptor semantics apart from the payload
// attachment rules owned by the wire package.
package transport

import (
	"io"

	"github.com/objectstream/crudfs/internal/wire"
)

type Transport interface {
	// Send writes the encoded descriptor in full, followed by the payload in
	// full when the operation carries one. For CREATE and UPDATE the payload
	// length must equal the descriptor's length field.
	Send(d wire.Descriptor, payload []byte) error

	// Receive reads and decodes a full response descriptor. If the decoded
	// operation is READ, exactly Length payload bytes are then read into buf,
	// which the caller must size beforehand.
	Receive(buf []byte) (wire.Descriptor, error)

	Close() error
}

// WriteFull writes all of p, looping on the underlying write primitive until
// the byte count is exhausted. Any inability to make progress is an error.
func WriteFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}
