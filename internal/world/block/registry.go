package block

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BlockID представляет идентификатор типа блока (индекс в таблице реестра)
type BlockID uint8

// AirBlockID всегда нулевой: пустая ячейка
const AirBlockID BlockID = 0

// MaxEmission максимальная сила свечения источника
const MaxEmission = 15

//go:embed assets/blocks.yaml
var defaultDefinitions []byte

// Textures ссылки на области текстурного атласа. Ядро мира их не интерпретирует.
type Textures struct {
	All    string `yaml:"all,omitempty"`
	Top    string `yaml:"top,omitempty"`
	Side   string `yaml:"side,omitempty"`
	Bottom string `yaml:"bottom,omitempty"`
}

// Definition неизменяемое описание типа блока
type Definition struct {
	ID       BlockID  `yaml:"id"`
	Name     string   `yaml:"name"`
	Visible  bool     `yaml:"visible"`
	Solid    bool     `yaml:"solid"`
	Opaque   bool     `yaml:"opaque"`
	Emission uint8    `yaml:"emission"`
	Textures Textures `yaml:"textures"`
}

// IsLightSource возвращает true, если блок излучает свет
func (d *Definition) IsLightSource() bool {
	return d.Emission > 0
}

type definitionsFile struct {
	Blocks []Definition `yaml:"blocks"`
}

// Registry таблица типов блоков. После загрузки только читается,
// поэтому безопасна для одновременного использования из воркеров.
type Registry struct {
	defs []Definition

	// Плоские таблицы флагов для горячих путей освещения и лучей
	opaque   []bool
	emission []uint8
}

// LoadRegistry разбирает YAML описания блоков.
// Любая ошибка здесь является ошибкой конфигурации.
func LoadRegistry(data []byte) (*Registry, error) {
	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("ошибка разбора описаний блоков: %w", err)
	}
	return NewRegistry(file.Blocks)
}

// LoadRegistryFile загружает реестр из файла; пустой путь означает встроенный набор
func LoadRegistryFile(path string) (*Registry, error) {
	if path == "" {
		return LoadRegistry(defaultDefinitions)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения описаний блоков %s: %w", path, err)
	}
	return LoadRegistry(data)
}

// DefaultRegistry возвращает реестр из встроенных описаний
func DefaultRegistry() (*Registry, error) {
	return LoadRegistry(defaultDefinitions)
}

// MustDefaultRegistry как DefaultRegistry, но паникует при ошибке
func MustDefaultRegistry() *Registry {
	r, err := DefaultRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// NewRegistry строит реестр из набора описаний. id должны быть плотными
// (0..n-1), имена уникальными, id 0 зарезервирован за "air".
func NewRegistry(defs []Definition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("пустой набор описаний блоков")
	}
	if len(defs) > 256 {
		return nil, fmt.Errorf("слишком много типов блоков: %d (максимум 256)", len(defs))
	}

	r := &Registry{
		defs:     make([]Definition, len(defs)),
		opaque:   make([]bool, len(defs)),
		emission: make([]uint8, len(defs)),
	}
	seen := make([]bool, len(defs))
	names := make(map[string]struct{}, len(defs))

	for _, d := range defs {
		if int(d.ID) >= len(defs) {
			return nil, fmt.Errorf("блок %q: id %d вне диапазона 0..%d", d.Name, d.ID, len(defs)-1)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("блок %q: повторный id %d", d.Name, d.ID)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("блок с id %d без имени", d.ID)
		}
		if _, dup := names[d.Name]; dup {
			return nil, fmt.Errorf("повторное имя блока %q", d.Name)
		}
		if d.Emission > MaxEmission {
			return nil, fmt.Errorf("блок %q: сила свечения %d больше %d", d.Name, d.Emission, MaxEmission)
		}

		seen[d.ID] = true
		names[d.Name] = struct{}{}
		r.defs[d.ID] = d
		r.opaque[d.ID] = d.Opaque
		r.emission[d.ID] = d.Emission
	}

	if r.defs[AirBlockID].Name != "air" {
		return nil, fmt.Errorf("id 0 должен принадлежать блоку air, найден %q", r.defs[AirBlockID].Name)
	}
	if r.defs[AirBlockID].Opaque || r.defs[AirBlockID].Solid {
		return nil, fmt.Errorf("блок air не может быть твердым или непрозрачным")
	}

	return r, nil
}

// Len возвращает количество типов
func (r *Registry) Len() int {
	return len(r.defs)
}

// Get возвращает описание по id. Корректность id гарантирует вызывающий.
func (r *Registry) Get(id BlockID) *Definition {
	return &r.defs[id]
}

// ByName ищет описание по имени линейным перебором (только на старте).
// Отсутствие имени это ошибка конфигурации: паника.
func (r *Registry) ByName(name string) *Definition {
	for i := range r.defs {
		if r.defs[i].Name == name {
			return &r.defs[i]
		}
	}
	panic(fmt.Sprintf("block: неизвестный тип блока %q", name))
}

// Lookup ищет описание по имени без паники
func (r *Registry) Lookup(name string) (*Definition, bool) {
	for i := range r.defs {
		if r.defs[i].Name == name {
			return &r.defs[i], true
		}
	}
	return nil, false
}

// ID сокращение для ByName(name).ID
func (r *Registry) ID(name string) BlockID {
	return r.ByName(name).ID
}

// Air возвращает id пустой ячейки
func (r *Registry) Air() BlockID {
	return AirBlockID
}

// IsOpaque сообщает, задерживает ли блок свет
func (r *Registry) IsOpaque(id BlockID) bool {
	return r.opaque[id]
}

// Emission возвращает силу свечения (0-15)
func (r *Registry) Emission(id BlockID) uint8 {
	return r.emission[id]
}
