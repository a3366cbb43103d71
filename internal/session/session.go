// Package session sequences connect (INIT) and disconnect (CLOSE) around
// transport operations and exposes a single request/response call against
// the object store. Exactly one connection and one outstanding request exist
// at a time.
package session

import (
	"github.com/google/uuid"
	"github.com/objectstream/crudfs/internal/log_service"
	"github.com/objectstream/crudfs/internal/transport"
	"github.com/objectstream/crudfs/internal/transport/tcp"
	"github.com/objectstream/crudfs/internal/wire"
	"github.com/pkg/errors"
)

type Session interface {
	// EnsureConnected dials the endpoint and performs the INIT handshake if
	// the session is uninitialized. Calling it while connected is a no-op.
	EnsureConnected() error

	// Request sends one operation and waits for its response. buf carries the
	// request payload for CREATE/UPDATE and receives the response payload for
	// READ; it is ignored for every other operation. A response with its
	// result bit set returns the decoded descriptor along with
	// ErrProtocolFailure. A CLOSE request tears the connection down after the
	// response; subsequent requests reconnect transparently.
	Request(op wire.Op, objectID uint32, length uint32, flags wire.Flags, buf []byte) (wire.Descriptor, error)

	Connected() bool
}

// DefaultSession drives one stream connection to a statically configured
// endpoint. It is not safe for concurrent use; callers serialize access.
type DefaultSession struct {
	addr string
	id   string
	ls   log_service.LogService
	tr   transport.Transport
}

func NewDefaultSession(addr string, ls log_service.LogService) *DefaultSession {
	return &DefaultSession{
		addr: addr,
		id:   uuid.New().String(),
		ls:   ls,
	}
}

func (s *DefaultSession) Connected() bool {
	return s.tr != nil
}

func (s *DefaultSession) EnsureConnected() error {
	if s.tr != nil {
		return nil
	}

	tr, err := tcp.Dial(s.addr, s.ls)
	if err != nil {
		return errors.Wrapf(ErrConnectionFailed, "connect to %s: %v", s.addr, err)
	}
	s.tr = tr

	if _, err := s.roundTrip(wire.OpInit, 0, 0, wire.FlagNone, nil); err != nil {
		s.teardown()
		return errors.Wrapf(ErrConnectionFailed, "init handshake: %v", err)
	}

	s.ls.Info(log_service.LogEvent{
		Component: "session",
		Message:   "Session initialized",
		Metadata:  map[string]any{"sessionID": s.id, "address": s.addr},
	})

	return nil
}

func (s *DefaultSession) Request(op wire.Op, objectID uint32, length uint32, flags wire.Flags, buf []byte) (wire.Descriptor, error) {
	if op != wire.OpInit {
		if err := s.EnsureConnected(); err != nil {
			return wire.Descriptor{}, err
		}
	}

	resp, err := s.roundTrip(op, objectID, length, flags, buf)

	if op == wire.OpClose {
		// Torn down after the response is obtained regardless of its result;
		// the next operation reconnects.
		s.teardown()
		s.ls.Info(log_service.LogEvent{
			Component: "session",
			Message:   "Session closed",
			Metadata:  map[string]any{"sessionID": s.id},
		})
	}

	return resp, err
}

func (s *DefaultSession) roundTrip(op wire.Op, objectID uint32, length uint32, flags wire.Flags, buf []byte) (wire.Descriptor, error) {
	req := wire.Descriptor{
		ObjectID: objectID,
		Op:       op,
		Length:   length,
		Flags:    flags,
	}

	var payload []byte
	if op.CarriesRequestPayload() {
		payload = buf
	}

	if err := s.tr.Send(req, payload); err != nil {
		return wire.Descriptor{}, err
	}

	resp, err := s.tr.Receive(buf)
	if err != nil {
		return resp, err
	}

	if resp.Result != wire.ResultOK {
		return resp, errors.Wrapf(ErrProtocolFailure, "%s rejected by store", op)
	}

	return resp, nil
}

func (s *DefaultSession) teardown() {
	if s.tr == nil {
		return
	}
	if err := s.tr.Close(); err != nil {
		s.ls.Warn(log_service.LogEvent{
			Component: "session",
			Message:   "Failed to close connection",
			Metadata:  map[string]any{"sessionID": s.id, "error": err.Error()},
		})
	}
	s.tr = nil
}

var _ Session = (*DefaultSession)(nil)
