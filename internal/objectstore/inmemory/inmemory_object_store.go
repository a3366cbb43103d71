package inmemory

import (
	"math"
	"sync"

	"github.com/objectstream/crudfs/internal/objectstore"
)

// InMemoryObjectStore keeps objects in a map. The mutex makes it safe to
// share one store across server connections.
type InMemoryObjectStore struct {
	mu         sync.Mutex
	objects    map[uint32][]byte
	nextID     uint32
	priorityID uint32
}

func NewInMemoryObjectStore() *InMemoryObjectStore {
	return &InMemoryObjectStore{
		objects: make(map[uint32][]byte),
		nextID:  1,
	}
}

func (s *InMemoryObjectStore) Format() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects = make(map[uint32][]byte)
	s.priorityID = 0
	return nil
}

func (s *InMemoryObjectStore) Create(data []byte, priority bool) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nextID == math.MaxUint32 {
		return 0, objectstore.ErrIdentifiersExhausted
	}

	id := s.nextID
	s.nextID++

	s.objects[id] = append([]byte(nil), data...)
	if priority {
		s.priorityID = id
	}
	return id, nil
}

func (s *InMemoryObjectStore) Read(id uint32, priority bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.resolve(id, priority)
	if err != nil {
		return nil, err
	}

	data, ok := s.objects[id]
	if !ok {
		return nil, objectstore.ErrObjectNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *InMemoryObjectStore) Update(id uint32, data []byte, priority bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.resolve(id, priority)
	if err != nil {
		return err
	}

	if _, ok := s.objects[id]; !ok {
		return objectstore.ErrObjectNotFound
	}
	s.objects[id] = append([]byte(nil), data...)
	return nil
}

func (s *InMemoryObjectStore) Delete(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[id]; !ok {
		return objectstore.ErrObjectNotFound
	}
	delete(s.objects, id)
	if s.priorityID == id {
		s.priorityID = 0
	}
	return nil
}

func (s *InMemoryObjectStore) Close() error {
	return nil
}

func (s *InMemoryObjectStore) resolve(id uint32, priority bool) (uint32, error) {
	if !priority {
		return id, nil
	}
	if s.priorityID == 0 {
		return 0, objectstore.ErrNoPriorityObject
	}
	return s.priorityID, nil
}

var _ objectstore.Store = (*InMemoryObjectStore)(nil)
