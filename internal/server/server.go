// Package server implements the object-store side of the wire protocol: a
// TCP listener that decodes request descriptors, dispatches them to a Store,
// and writes response descriptors. It exists so the client stack can be run
// and tested end-to-end; a production store speaking the same protocol is
// interchangeable with it.
package server

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/objectstream/crudfs/internal/log_service"
	"github.com/objectstream/crudfs/internal/objectstore"
	"github.com/objectstream/crudfs/internal/transport"
	"github.com/objectstream/crudfs/internal/wire"
	"github.com/pkg/errors"
)

const descriptorSize = 8

type DefaultServer struct {
	addr     string
	store    objectstore.Store
	ls       log_service.LogService
	listener net.Listener
	wg       sync.WaitGroup
}

func NewDefaultServer(addr string, store objectstore.Store, ls log_service.LogService) *DefaultServer {
	return &DefaultServer{
		addr:  addr,
		store: store,
		ls:    ls,
	}
}

// Start begins accepting connections. It returns once the listener is bound;
// connections are served on background goroutines.
func (s *DefaultServer) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(ErrServerStartFailed, "listen on %s: %v", s.addr, err)
	}
	s.listener = listener

	s.ls.Info(log_service.LogEvent{
		Component: "server",
		Message:   "Object store server listening",
		Metadata:  map[string]any{"address": listener.Addr().String()},
	})

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Address returns the bound listen address. Useful when starting on port 0.
func (s *DefaultServer) Address() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and waits for in-flight connections to finish.
func (s *DefaultServer) Stop() error {
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	s.wg.Wait()
	if err != nil {
		return errors.Wrapf(ErrServerStopFailed, "%v", err)
	}
	return s.store.Close()
}

func (s *DefaultServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// handleConn serves one request/response exchange at a time until the client
// issues CLOSE or the connection drops.
func (s *DefaultServer) handleConn(conn net.Conn) {
	defer conn.Close()

	for {
		req, payload, err := readRequest(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.ls.Warn(log_service.LogEvent{
					Component: "server",
					Message:   "Dropping connection",
					Metadata:  map[string]any{"error": err.Error()},
				})
			}
			return
		}

		resp, respPayload := s.dispatch(req, payload)
		if err := writeResponse(conn, resp, respPayload); err != nil {
			s.ls.Warn(log_service.LogEvent{
				Component: "server",
				Message:   "Failed to write response",
				Metadata:  map[string]any{"op": req.Op.String(), "error": err.Error()},
			})
			return
		}

		if req.Op == wire.OpClose {
			return
		}
	}
}

// dispatch maps one decoded request onto the store. Store failures become a
// set result bit rather than a dropped connection.
func (s *DefaultServer) dispatch(req wire.Descriptor, payload []byte) (wire.Descriptor, []byte) {
	resp := wire.Descriptor{ObjectID: req.ObjectID, Op: req.Op, Flags: req.Flags}
	priority := req.Flags&wire.FlagPriorityObject != 0

	fail := func(err error) (wire.Descriptor, []byte) {
		s.ls.Warn(log_service.LogEvent{
			Component: "server",
			Message:   "Operation failed",
			Metadata:  map[string]any{"op": req.Op.String(), "objectID": req.ObjectID, "error": err.Error()},
		})
		resp.Length = 0
		resp.Result = wire.ResultFailure
		return resp, nil
	}

	switch req.Op {
	case wire.OpInit:
		return resp, nil

	case wire.OpFormat:
		if err := s.store.Format(); err != nil {
			return fail(err)
		}
		return resp, nil

	case wire.OpCreate:
		id, err := s.store.Create(payload, priority)
		if err != nil {
			return fail(err)
		}
		resp.ObjectID = id
		resp.Length = uint32(len(payload))
		return resp, nil

	case wire.OpRead:
		data, err := s.store.Read(req.ObjectID, priority)
		if err != nil {
			return fail(err)
		}
		resp.Length = uint32(len(data))
		return resp, data

	case wire.OpUpdate:
		if err := s.store.Update(req.ObjectID, payload, priority); err != nil {
			return fail(err)
		}
		resp.Length = uint32(len(payload))
		return resp, nil

	case wire.OpDelete:
		if err := s.store.Delete(req.ObjectID); err != nil {
			return fail(err)
		}
		return resp, nil

	case wire.OpClose:
		if err := s.store.Close(); err != nil {
			return fail(err)
		}
		return resp, nil
	}

	return fail(errors.Errorf("unknown operation %d", req.Op))
}

// readRequest reads one request descriptor and, for operations that carry a
// payload, exactly Length payload bytes.
func readRequest(r io.Reader) (wire.Descriptor, []byte, error) {
	var word [descriptorSize]byte
	if _, err := io.ReadFull(r, word[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return wire.Descriptor{}, nil, io.EOF
		}
		return wire.Descriptor{}, nil, errors.Wrap(err, "reading request descriptor")
	}

	d := wire.Decode(binary.BigEndian.Uint64(word[:]))
	if !d.Op.CarriesRequestPayload() || d.Length == 0 {
		return d, nil, nil
	}

	payload := make([]byte, d.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return d, nil, errors.Wrap(err, "reading request payload")
	}
	return d, payload, nil
}

func writeResponse(w io.Writer, d wire.Descriptor, payload []byte) error {
	var word [descriptorSize]byte
	binary.BigEndian.PutUint64(word[:], d.Encode())
	if err := transport.WriteFull(w, word[:]); err != nil {
		return errors.Wrap(err, "writing response descriptor")
	}
	if d.Op.CarriesResponsePayload() && d.Result == wire.ResultOK {
		if err := transport.WriteFull(w, payload); err != nil {
			return errors.Wrap(err, "writing response payload")
		}
	}
	return nil
}
