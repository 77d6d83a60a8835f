package world

import (
	"bytes"
	"errors"
	"sync"

	"github.com/annel0/voxel-world/internal/vec"
)

// ErrChunkNotStored - для координат нет сохранённых данных
var ErrChunkNotStored = errors.New("чанк не сохранён")

// ChunkStore - постоянное хранилище чанков. Методы Load и Save вызываются из воркеров,
// Exists - из главного потока.
type ChunkStore interface {
	Exists(seed uint32, coords vec.Vec2) bool
	Load(seed uint32, c *Chunk) error
	Save(seed uint32, c *Chunk) error
}

// MemoryStore хранит закодированные чанки в памяти
type MemoryStore struct {
	mu   sync.RWMutex
	data map[memoryKey][]byte
}

type memoryKey struct {
	seed   uint32
	coords vec.Vec2
}

// NewMemoryStore создаёт пустое хранилище
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[memoryKey][]byte)}
}

func (s *MemoryStore) Exists(seed uint32, coords vec.Vec2) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[memoryKey{seed, coords}]
	return ok
}

func (s *MemoryStore) Load(seed uint32, c *Chunk) error {
	s.mu.RLock()
	raw, ok := s.data[memoryKey{seed, c.Coords}]
	s.mu.RUnlock()
	if !ok {
		return ErrChunkNotStored
	}
	return c.Decode(bytes.NewReader(raw), seed)
}

func (s *MemoryStore) Save(seed uint32, c *Chunk) error {
	raw, err := c.MarshalBinary(seed)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[memoryKey{seed, c.Coords}] = raw
	s.mu.Unlock()
	return nil
}

// Put кладёт произвольные байты (например, повреждённый файл)
func (s *MemoryStore) Put(seed uint32, coords vec.Vec2, raw []byte) {
	s.mu.Lock()
	s.data[memoryKey{seed, coords}] = raw
	s.mu.Unlock()
}

// Len возвращает число сохранённых чанков
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
