package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

// FileStore хранит каждый чанк отдельным файлом: <dir>/<seed>/<x>_<y>.chunk
type FileStore struct {
	dir string
	log *logging.Logger
}

// NewFileStore создаёт каталог хранилища
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог чанков %s: %w", dir, err)
	}
	return &FileStore{dir: dir, log: logging.GetStorageLogger()}, nil
}

// Path возвращает путь к файлу чанка
func (s *FileStore) Path(seed uint32, coords vec.Vec2) string {
	name := strconv.Itoa(coords.X) + "_" + strconv.Itoa(coords.Y) + ".chunk"
	return filepath.Join(s.dir, strconv.FormatUint(uint64(seed), 10), name)
}

func (s *FileStore) Exists(seed uint32, coords vec.Vec2) bool {
	_, err := os.Stat(s.Path(seed, coords))
	return err == nil
}

func (s *FileStore) Load(seed uint32, c *world.Chunk) error {
	err := c.LoadFromFile(s.Path(seed, c.Coords), seed)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *FileStore) Save(seed uint32, c *world.Chunk) error {
	path := s.Path(seed, c.Coords)
	if err := c.SaveToFile(path, seed); err != nil {
		return err
	}
	s.log.Debug("Чанк %v сохранён в %s", c.Coords, path)
	return nil
}

// Close ничего не держит открытым
func (s *FileStore) Close() error { return nil }
