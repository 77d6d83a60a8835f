// chunkinfo печатает заголовок и статистику серий сохранённого файла чанка.
//
//	chunkinfo [-blocks defs.yaml] data/chunks/1337/0_-3.chunk
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

func main() {
	blocksPath := flag.String("blocks", "", "YAML описания блоков (пусто = встроенные)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: chunkinfo [-blocks file] <chunk-file>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	registry, err := loadRegistry(*blocksPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки блоков: %v", err)
	}

	failed := false
	for _, path := range flag.Args() {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("❌ %s: %v", path, err)
			failed = true
			continue
		}
		if err := inspect(os.Stdout, path, raw, registry); err != nil {
			log.Printf("❌ %s: %v", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func loadRegistry(path string) (*block.Registry, error) {
	if path == "" {
		return block.DefaultRegistry()
	}
	return block.LoadRegistryFile(path)
}

// runStats - статистика RLE тела файла
type runStats struct {
	runs    int
	longest int
	full    int // серий максимальной длины
}

func scanRuns(body []byte) runStats {
	var s runStats
	for i := 0; i+1 < len(body); i += 2 {
		n := int(body[i+1])
		s.runs++
		if n > s.longest {
			s.longest = n
		}
		if n == 255 {
			s.full++
		}
	}
	return s
}

func inspect(out io.Writer, path string, raw []byte, registry *block.Registry) error {
	header, err := world.ReadChunkHeader(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n", path)
	fmt.Fprintf(out, "  версия:  %d\n", header.Version)
	fmt.Fprintf(out, "  биты:    x=%d y=%d z=%d\n", header.Bits[0], header.Bits[1], header.Bits[2])
	fmt.Fprintf(out, "  сид:     %d\n", header.Seed)
	if !header.Compatible() {
		return fmt.Errorf("%w: геометрия не совпадает с текущей сборкой", world.ErrBadHeader)
	}

	stats := scanRuns(raw[world.ChunkHeaderSize:])
	fmt.Fprintf(out, "  размер:  %d байт (заголовок %d)\n", len(raw), world.ChunkHeaderSize)
	fmt.Fprintf(out, "  серий:   %d, самая длинная %d, полных %d\n", stats.runs, stats.longest, stats.full)

	c := world.NewChunk(vec.Vec2{}, registry)
	if err := c.Decode(bytes.NewReader(raw), header.Seed); err != nil {
		if errors.Is(err, world.ErrCorruptBody) {
			return err
		}
		return fmt.Errorf("не удалось разобрать чанк: %w", err)
	}

	type entry struct {
		name  string
		count int
	}
	var entries []entry
	for id, n := range c.TypeCounts() {
		if n > 0 {
			entries = append(entries, entry{registry.Get(block.BlockID(id)).Name, n})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	fmt.Fprintf(out, "  блоки:\n")
	for _, e := range entries {
		fmt.Fprintf(out, "    %-14s %6d  %5.1f%%\n", e.name, e.count, 100*float64(e.count)/world.CellCount)
	}
	return nil
}
