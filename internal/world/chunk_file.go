package world

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/annel0/voxel-world/internal/world/block"
)

// Формат файла чанка:
//
//	"VXCK" | версия (1 байт) | биты X,Y,Z (3 байта) | сид (uint32 LE) | пары (тип, длина серии)
//
// Серии не длиннее 255 ячеек, ячейки идут в порядке индекса.
const (
	chunkFormatVersion = 1
	ChunkHeaderSize    = 4 + 1 + 3 + 4
	maxRunLength       = 255
)

var chunkMagic = [4]byte{'V', 'X', 'C', 'K'}

var (
	// ErrBadHeader - заголовок не совпадает с текущими параметрами мира
	ErrBadHeader = errors.New("заголовок файла чанка не совпадает")
	// ErrCorruptBody - тело файла повреждено или обрезано
	ErrCorruptBody = errors.New("тело файла чанка повреждено")
)

func encodeHeader(seed uint32) [ChunkHeaderSize]byte {
	var h [ChunkHeaderSize]byte
	copy(h[0:4], chunkMagic[:])
	h[4] = chunkFormatVersion
	h[5] = SizeXBits
	h[6] = SizeYBits
	h[7] = SizeZBits
	binary.LittleEndian.PutUint32(h[8:12], seed)
	return h
}

// Encode записывает типы блоков чанка в формате файла чанка
func (c *Chunk) Encode(w io.Writer, seed uint32) error {
	bw := bufio.NewWriter(w)
	header := encodeHeader(seed)
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}

	run := 0
	current := c.cells[0].Type
	flush := func() error {
		if err := bw.WriteByte(byte(current)); err != nil {
			return err
		}
		return bw.WriteByte(byte(run))
	}
	for i := range c.cells {
		t := c.cells[i].Type
		if t == current && run < maxRunLength {
			run++
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		current, run = t, 1
	}
	if err := flush(); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode читает файл чанка. Чанк меняется только при полностью корректном файле:
// типы заменяются, свет и флаги сбрасываются.
func (c *Chunk) Decode(r io.Reader, seed uint32) error {
	br := bufio.NewReader(r)

	var header [ChunkHeaderSize]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if header != encodeHeader(seed) {
		return ErrBadHeader
	}

	types := make([]block.BlockID, CellCount)
	limit := c.registry.Len()
	pos := 0
	for pos < CellCount {
		t, err := br.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: обрыв на ячейке %d", ErrCorruptBody, pos)
		}
		n, err := br.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: обрыв на ячейке %d", ErrCorruptBody, pos)
		}
		if n == 0 || int(t) >= limit || pos+int(n) > CellCount {
			return fmt.Errorf("%w: серия (%d, %d) на ячейке %d", ErrCorruptBody, t, n, pos)
		}
		for end := pos + int(n); pos < end; pos++ {
			types[pos] = block.BlockID(t)
		}
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return fmt.Errorf("%w: лишние данные после тела", ErrCorruptBody)
	}

	for i := range c.cells {
		c.cells[i] = Cell{Type: types[i]}
	}
	return nil
}

// MarshalBinary кодирует чанк в память
func (c *Chunk) MarshalBinary(seed uint32) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, seed); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveToFile атомарно записывает чанк: временный файл и переименование
func (c *Chunk) SaveToFile(path string, seed uint32) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("не удалось создать каталог чанков: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("не удалось создать файл чанка: %w", err)
	}
	if err := c.Encode(f, seed); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("не удалось записать чанк %v: %w", c.Coords, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadFromFile читает чанк из файла
func (c *Chunk) LoadFromFile(path string, seed uint32) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.Decode(f, seed)
}

// ChunkFileHeader - разобранный заголовок файла чанка
type ChunkFileHeader struct {
	Version uint8
	Bits    [3]uint8
	Seed    uint32
}

// Compatible сообщает, совпадает ли геометрия файла с текущей
func (h ChunkFileHeader) Compatible() bool {
	return h.Version == chunkFormatVersion && h.Bits == [3]uint8{SizeXBits, SizeYBits, SizeZBits}
}

// ReadChunkHeader читает заголовок, не зная сида заранее
func ReadChunkHeader(r io.Reader) (ChunkFileHeader, error) {
	var raw [ChunkHeaderSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return ChunkFileHeader{}, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if !bytes.Equal(raw[0:4], chunkMagic[:]) {
		return ChunkFileHeader{}, fmt.Errorf("%w: сигнатура %q", ErrBadHeader, raw[0:4])
	}
	return ChunkFileHeader{
		Version: raw[4],
		Bits:    [3]uint8{raw[5], raw[6], raw[7]},
		Seed:    binary.LittleEndian.Uint32(raw[8:12]),
	}, nil
}
