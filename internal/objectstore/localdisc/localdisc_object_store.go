package localdisc

import (
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/objectstream/crudfs/internal/log_service"
	"github.com/objectstream/crudfs/internal/objectstore"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const indexFile = "index.yaml"

type indexEntry struct {
	File     string `yaml:"file"`
	Priority bool   `yaml:"priority"`
}

type index struct {
	NextID  uint32                `yaml:"next_id"`
	Objects map[uint32]indexEntry `yaml:"objects"`
}

// LocalDiscObjectStore keeps each object in its own uuid-named file under
// baseDir, with a yaml index mapping identifiers to files. Identifiers are
// reused across delete/create cycles of the store's lifetime, so file names
// are deliberately decoupled from them.
type LocalDiscObjectStore struct {
	baseDir string
	ls      log_service.LogService
	mu      sync.Mutex
	idx     index
}

func NewLocalDiscObjectStore(baseDir string, ls log_service.LogService) (*LocalDiscObjectStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrap(err, "creating store directory")
	}

	s := &LocalDiscObjectStore{
		baseDir: baseDir,
		ls:      ls,
		idx:     index{NextID: 1, Objects: make(map[uint32]indexEntry)},
	}

	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading store index")
	}
	if err := yaml.Unmarshal(data, &s.idx); err != nil {
		return nil, errors.Wrap(err, "parsing store index")
	}
	if s.idx.Objects == nil {
		s.idx.Objects = make(map[uint32]indexEntry)
	}
	if s.idx.NextID == 0 {
		s.idx.NextID = 1
	}

	s.ls.Info(log_service.LogEvent{
		Component: "objectstore",
		Message:   "Loaded object store index",
		Metadata:  map[string]any{"dir": baseDir, "objects": len(s.idx.Objects)},
	})

	return s, nil
}

func (s *LocalDiscObjectStore) indexPath() string {
	return filepath.Join(s.baseDir, indexFile)
}

func (s *LocalDiscObjectStore) objectPath(e indexEntry) string {
	return filepath.Join(s.baseDir, e.File)
}

func (s *LocalDiscObjectStore) saveIndex() error {
	data, err := yaml.Marshal(&s.idx)
	if err != nil {
		return errors.Wrap(err, "marshaling store index")
	}
	return errors.Wrap(os.WriteFile(s.indexPath(), data, 0644), "writing store index")
}

func (s *LocalDiscObjectStore) Format() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.idx.Objects {
		if err := os.Remove(s.objectPath(e)); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "removing object file")
		}
	}
	s.idx.Objects = make(map[uint32]indexEntry)
	return s.saveIndex()
}

func (s *LocalDiscObjectStore) Create(data []byte, priority bool) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx.NextID == math.MaxUint32 {
		return 0, objectstore.ErrIdentifiersExhausted
	}

	e := indexEntry{File: uuid.New().String() + ".obj", Priority: priority}
	if err := os.WriteFile(s.objectPath(e), data, 0644); err != nil {
		return 0, errors.Wrap(err, "writing object file")
	}

	id := s.idx.NextID
	s.idx.NextID++
	if priority {
		s.clearPriority()
	}
	s.idx.Objects[id] = e

	if err := s.saveIndex(); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *LocalDiscObjectStore) Read(id uint32, priority bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.resolve(id, priority)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.objectPath(e))
	if err != nil {
		return nil, errors.Wrap(err, "reading object file")
	}
	return data, nil
}

func (s *LocalDiscObjectStore) Update(id uint32, data []byte, priority bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.resolve(id, priority)
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(s.objectPath(e), data, 0644), "writing object file")
}

func (s *LocalDiscObjectStore) Delete(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.idx.Objects[id]
	if !ok {
		return objectstore.ErrObjectNotFound
	}
	if err := os.Remove(s.objectPath(e)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing object file")
	}
	delete(s.idx.Objects, id)
	return s.saveIndex()
}

func (s *LocalDiscObjectStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveIndex()
}

func (s *LocalDiscObjectStore) resolve(id uint32, priority bool) (indexEntry, error) {
	if priority {
		for _, e := range s.idx.Objects {
			if e.Priority {
				return e, nil
			}
		}
		return indexEntry{}, objectstore.ErrNoPriorityObject
	}

	e, ok := s.idx.Objects[id]
	if !ok {
		return indexEntry{}, objectstore.ErrObjectNotFound
	}
	return e, nil
}

// clearPriority drops the priority mark from any existing object; a fresh
// directory object supersedes the old one.
func (s *LocalDiscObjectStore) clearPriority() {
	for id, e := range s.idx.Objects {
		if e.Priority {
			e.Priority = false
			s.idx.Objects[id] = e
		}
	}
}

var _ objectstore.Store = (*LocalDiscObjectStore)(nil)
