package block

import (
	"fmt"
	"sort"

	"github.com/annel0/voxel-world/internal/vec"
)

// Placement одна ячейка шаблона: смещение от точки вставки и тип блока
type Placement struct {
	Offset vec.Vec3
	Type   BlockID
}

// Template именованный многоклеточный штамп (дерево, кактус)
type Template struct {
	Name  string
	Cells []Placement
}

// StampTarget сетка, в которую можно поставить шаблон (реализуется чанком)
type StampTarget interface {
	InBounds(x, y, z int) bool
	TypeAt(x, y, z int) BlockID
	SetTypeAt(x, y, z int, id BlockID)
}

// Stamp пишет шаблон в target с началом в origin. Пишет только в ячейки воздуха,
// смещения за пределами target молча пропускаются. Возвращает число записанных ячеек.
func (t *Template) Stamp(target StampTarget, origin vec.Vec3) int {
	written := 0
	for _, p := range t.Cells {
		x, y, z := origin.X+p.Offset.X, origin.Y+p.Offset.Y, origin.Z+p.Offset.Z
		if !target.InBounds(x, y, z) {
			continue
		}
		if target.TypeAt(x, y, z) != AirBlockID {
			continue
		}
		target.SetTypeAt(x, y, z, p.Type)
		written++
	}
	return written
}

// TemplateSet набор шаблонов по имени. Неизменяем после построения.
type TemplateSet struct {
	templates map[string]*Template
}

// NewTemplateSet создаёт пустой набор
func NewTemplateSet() *TemplateSet {
	return &TemplateSet{templates: make(map[string]*Template)}
}

// Add регистрирует шаблон; повторное имя это ошибка конфигурации
func (s *TemplateSet) Add(name string, cells []Placement) error {
	if _, exists := s.templates[name]; exists {
		return fmt.Errorf("шаблон %q уже зарегистрирован", name)
	}
	if len(cells) == 0 {
		return fmt.Errorf("шаблон %q пуст", name)
	}
	s.templates[name] = &Template{Name: name, Cells: cells}
	return nil
}

// Get возвращает шаблон по имени. Неизвестное имя: паника (ошибка конфигурации).
func (s *TemplateSet) Get(name string) *Template {
	t, ok := s.templates[name]
	if !ok {
		panic(fmt.Sprintf("block: неизвестный шаблон %q", name))
	}
	return t
}

// Names возвращает отсортированный список имен
func (s *TemplateSet) Names() []string {
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Имена стандартных шаблонов
const (
	TemplateOak    = "oak"
	TemplateBirch  = "birch"
	TemplateSpruce = "spruce"
	TemplateCactus = "cactus"
)

// DefaultTemplates строит стандартные деревья и кактус из id реестра.
// Отсутствующие в реестре типы приводят к панике в ByName.
func DefaultTemplates(r *Registry) *TemplateSet {
	s := NewTemplateSet()

	mustAdd := func(name string, cells []Placement) {
		if err := s.Add(name, cells); err != nil {
			panic(err)
		}
	}

	mustAdd(TemplateOak, roundTree(r.ID("oak_log"), r.ID("oak_leaves"), 5))
	mustAdd(TemplateBirch, roundTree(r.ID("birch_log"), r.ID("birch_leaves"), 6))
	mustAdd(TemplateSpruce, coneTree(r.ID("spruce_log"), r.ID("spruce_leaves"), 7))
	mustAdd(TemplateCactus, column(r.ID("cactus"), 3))

	return s
}

// roundTree ствол высотой trunk и крона: два слоя радиуса 2 без углов и два слоя радиуса 1
func roundTree(log, leaves BlockID, trunk int) []Placement {
	var cells []Placement
	for z := 0; z < trunk; z++ {
		cells = append(cells, Placement{Offset: vec.Vec3{Z: z}, Type: log})
	}

	leafBase := trunk - 2
	for dz := 0; dz < 4; dz++ {
		radius := 2
		if dz >= 2 {
			radius = 1
		}
		z := leafBase + dz
		for dx := -radius; dx <= radius; dx++ {
			for dy := -radius; dy <= radius; dy++ {
				if dx == 0 && dy == 0 && z < trunk {
					continue
				}
				if radius == 2 && abs(dx) == 2 && abs(dy) == 2 {
					continue
				}
				if radius == 1 && dz == 3 && abs(dx)+abs(dy) == 2 {
					continue
				}
				cells = append(cells, Placement{Offset: vec.Vec3{X: dx, Y: dy, Z: z}, Type: leaves})
			}
		}
	}
	return cells
}

// coneTree ель: крона сужается к вершине
func coneTree(log, leaves BlockID, trunk int) []Placement {
	var cells []Placement
	for z := 0; z < trunk; z++ {
		cells = append(cells, Placement{Offset: vec.Vec3{Z: z}, Type: log})
	}

	for dz := 2; dz < trunk; dz++ {
		radius := (trunk - dz + 1) / 2
		if radius > 3 {
			radius = 3
		}
		for dx := -radius; dx <= radius; dx++ {
			for dy := -radius; dy <= radius; dy++ {
				if dx == 0 && dy == 0 {
					continue
				}
				if abs(dx)+abs(dy) > radius+1 {
					continue
				}
				cells = append(cells, Placement{Offset: vec.Vec3{X: dx, Y: dy, Z: dz}, Type: leaves})
			}
		}
	}
	cells = append(cells, Placement{Offset: vec.Vec3{Z: trunk}, Type: leaves})
	return cells
}

func column(id BlockID, height int) []Placement {
	cells := make([]Placement, 0, height)
	for z := 0; z < height; z++ {
		cells = append(cells, Placement{Offset: vec.Vec3{Z: z}, Type: id})
	}
	return cells
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
