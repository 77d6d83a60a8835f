package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

const redisTimeout = 5 * time.Second

// RedisStore хранит чанки в Redis под ключами chunk:<seed>:<x>:<y>.
// Значения упаковываются так же, как в BadgerStore.
type RedisStore struct {
	client *redis.Client
	codec  *chunkCodec
	log    *logging.Logger

	mutex   sync.RWMutex
	isReady bool
}

// OpenRedisStore подключается по URL вида redis://[:password@]host:port/db
func OpenRedisStore(url string, compress bool) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("неверный адрес Redis %q: %w", url, err)
	}
	opts.ReadTimeout = redisTimeout
	opts.WriteTimeout = redisTimeout
	return NewRedisStore(redis.NewClient(opts), compress)
}

// NewRedisStore оборачивает готовый клиент и проверяет соединение
func NewRedisStore(client *redis.Client, compress bool) (*RedisStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	codec, err := newChunkCodec(compress)
	if err != nil {
		client.Close()
		return nil, err
	}

	s := &RedisStore{
		client:  client,
		codec:   codec,
		log:     logging.GetStorageLogger(),
		isReady: true,
	}
	s.log.Info("Redis хранилище подключено: %s", client.Options().Addr)
	return s, nil
}

func (s *RedisStore) Exists(seed uint32, coords vec.Vec2) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	n, err := s.client.Exists(ctx, string(chunkKey(seed, coords))).Result()
	if err != nil {
		s.log.Warn("Redis Exists %v: %v", coords, err)
		return false
	}
	return n > 0
}

func (s *RedisStore) Load(seed uint32, c *world.Chunk) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return errNotReady
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	data, err := s.client.Get(ctx, string(chunkKey(seed, c.Coords))).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis get error: %w", err)
	}

	body, err := s.codec.unpack(data)
	if err != nil {
		return err
	}
	return c.Decode(bytes.NewReader(body), seed)
}

func (s *RedisStore) Save(seed uint32, c *world.Chunk) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := s.client.Set(ctx, string(chunkKey(seed, c.Coords)), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	s.log.Debug("Чанк %v сохранён в Redis: %d байт (исходно %d)", c.Coords, len(value), len(raw))
	return nil
}

// Close закрывает соединение
func (s *RedisStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}
	s.isReady = false
	s.codec.close()
	return s.client.Close()
}
