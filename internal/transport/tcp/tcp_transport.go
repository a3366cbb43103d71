package tcp

import (
	"encoding/binary"
	"io"
	"net"

	"github.com/objectstream/crudfs/internal/log_service"
	"github.com/objectstream/crudfs/internal/transport"
	"github.com/objectstream/crudfs/internal/wire"
	"github.com/pkg/errors"
)

// descriptorSize is the size of one encoded protocol word on the wire.
const descriptorSize = 8

// TCPTransport frames descriptors and payloads over one stream connection.
// It keeps no buffers and allows no pipelining: request N+1 is never sent
// before response N is fully consumed.
type TCPTransport struct {
	conn net.Conn
	ls   log_service.LogService
}

// Dial connects to the object-store endpoint.
func Dial(addr string, ls log_service.LogService) (*TCPTransport, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", addr)
	}

	ls.Debug(log_service.LogEvent{
		Component: "transport",
		Message:   "Connected to object store",
		Metadata:  map[string]any{"address": addr},
	})

	return NewTCPTransport(conn, ls), nil
}

// NewTCPTransport wraps an established stream connection.
func NewTCPTransport(conn net.Conn, ls log_service.LogService) *TCPTransport {
	return &TCPTransport{conn: conn, ls: ls}
}

func (t *TCPTransport) Send(d wire.Descriptor, payload []byte) error {
	// Network byte order is applied exactly once, here, on the encoded word.
	var word [descriptorSize]byte
	binary.BigEndian.PutUint64(word[:], d.Encode())

	if err := transport.WriteFull(t.conn, word[:]); err != nil {
		t.ls.Error(log_service.LogEvent{
			Component: "transport",
			Message:   "Failed to send descriptor",
			Metadata:  map[string]any{"op": d.Op.String(), "error": err.Error()},
		})
		return errors.Wrapf(transport.ErrTransportWrite, "sending %s descriptor: %v", d.Op, err)
	}

	if !d.Op.CarriesRequestPayload() {
		return nil
	}

	if uint32(len(payload)) != d.Length {
		return errors.Wrapf(transport.ErrPayloadMismatch, "%s payload is %d bytes, descriptor says %d", d.Op, len(payload), d.Length)
	}

	if err := transport.WriteFull(t.conn, payload); err != nil {
		t.ls.Error(log_service.LogEvent{
			Component: "transport",
			Message:   "Failed to send payload",
			Metadata:  map[string]any{"op": d.Op.String(), "length": d.Length, "error": err.Error()},
		})
		return errors.Wrapf(transport.ErrTransportWrite, "sending %s payload: %v", d.Op, err)
	}

	return nil
}

func (t *TCPTransport) Receive(buf []byte) (wire.Descriptor, error) {
	var word [descriptorSize]byte
	if _, err := io.ReadFull(t.conn, word[:]); err != nil {
		t.ls.Error(log_service.LogEvent{
			Component: "transport",
			Message:   "Failed to receive descriptor",
			Metadata:  map[string]any{"error": err.Error()},
		})
		return wire.Descriptor{}, errors.Wrapf(transport.ErrTransportRead, "receiving descriptor: %v", err)
	}

	d := wire.Decode(binary.BigEndian.Uint64(word[:]))

	if !d.Op.CarriesResponsePayload() || d.Length == 0 {
		return d, nil
	}

	if uint32(len(buf)) < d.Length {
		return d, errors.Wrapf(transport.ErrBufferTooSmall, "%d < %d", len(buf), d.Length)
	}

	if _, err := io.ReadFull(t.conn, buf[:d.Length]); err != nil {
		t.ls.Error(log_service.LogEvent{
			Component: "transport",
			Message:   "Failed to receive payload",
			Metadata:  map[string]any{"op": d.Op.String(), "length": d.Length, "error": err.Error()},
		})
		return d, errors.Wrapf(transport.ErrTransportRead, "receiving %s payload: %v", d.Op, err)
	}

	return d, nil
}

func (t *TCPTransport) Close() error {
	return t.conn.Close()
}

var _ transport.Transport = (*TCPTransport)(nil)
