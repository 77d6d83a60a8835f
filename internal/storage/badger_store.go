package storage

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

// BadgerStore хранит закодированные чанки в BadgerDB, при compress - сжатыми zstd
type BadgerStore struct {
	db    *badger.DB
	codec *chunkCodec
	log   *logging.Logger

	mutex   sync.RWMutex
	isReady bool
}

// OpenBadgerStore открывает базу в каталоге path. Пустой path - база в памяти.
func OpenBadgerStore(path string, compress bool) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	codec, err := newChunkCodec(compress)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BadgerStore{
		db:      db,
		codec:   codec,
		log:     logging.GetStorageLogger(),
		isReady: true,
	}, nil
}

func chunkKey(seed uint32, coords vec.Vec2) []byte {
	return []byte(fmt.Sprintf("chunk:%d:%d:%d", seed, coords.X, coords.Y))
}

func (s *BadgerStore) Exists(seed uint32, coords vec.Vec2) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return false
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(chunkKey(seed, coords))
		return err
	})
	return err == nil
}

func (s *BadgerStore) Load(seed uint32, c *world.Chunk) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return errNotReady
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(seed, c.Coords))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	body, err := s.codec.unpack(data)
	if err != nil {
		return err
	}
	return c.Decode(bytes.NewReader(body), seed)
}

func (s *BadgerStore) Save(seed uint32, c *world.Chunk) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return errNotReady
	}

	raw, err := c.MarshalBinary(seed)
	if err != nil {
		return err
	}
	value := s.codec.pack(raw)

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(seed, c.Coords), value)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	s.log.Debug("Чанк %v сохранён: %d байт (исходно %d)", c.Coords, len(value), len(raw))
	return nil
}

// Close закрывает базу
func (s *BadgerStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}
	s.isReady = false
	s.codec.close()
	return s.db.Close()
}
