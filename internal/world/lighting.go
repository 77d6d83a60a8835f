package world

import "github.com/annel0/voxel-world/internal/world/block"

// Lighting - очередь распространения света. Используется только главным потоком.
// Каждая ячейка стоит в очереди не больше одного раза: повторная постановка
// отсекается флагом flagLightDirty.
type Lighting struct {
	registry *block.Registry
	queue    []Cursor
	head     int

	processed uint64
	changed   uint64
}

// NewLighting создаёт пустую очередь
func NewLighting(registry *block.Registry) *Lighting {
	return &Lighting{registry: registry}
}

// Enqueue ставит ячейку в очередь, если её там ещё нет
func (l *Lighting) Enqueue(cur Cursor) {
	if !cur.IsValid() {
		return
	}
	cell := cur.Cell()
	if cell.Flags&flagLightDirty != 0 {
		return
	}
	cell.Flags |= flagLightDirty
	l.queue = append(l.queue, cur)
}

// Len возвращает число ячеек в очереди
func (l *Lighting) Len() int { return len(l.queue) - l.head }

// Processed возвращает общее число обработанных ячеек
func (l *Lighting) Processed() uint64 { return l.processed }

// Changed возвращает общее число ячеек, у которых изменился свет
func (l *Lighting) Changed() uint64 { return l.changed }

// Drain обрабатывает очередь до неподвижной точки и возвращает число обработанных ячеек
func (l *Lighting) Drain() int {
	n := 0
	for l.head < len(l.queue) {
		cur := l.queue[l.head]
		l.queue[l.head] = Cursor{}
		l.head++
		l.process(cur)
		n++
	}
	l.queue = l.queue[:0]
	l.head = 0
	l.processed += uint64(n)
	return n
}

// process пересчитывает свет одной ячейки:
// кандидат = max(излучение, 15 под небом для наружного канала, сосед-1 по прозрачным соседям).
// Непрозрачные ячейки несут только собственное излучение.
func (l *Lighting) process(cur Cursor) {
	// ячейки неактивного чанка принадлежат воркеру или уже уничтожены
	if cur.Chunk.State() != StateActive {
		return
	}
	cell := cur.Cell()
	cell.Flags &^= flagLightDirty

	opaque := l.registry.IsOpaque(cell.Type)
	indoor := l.registry.Emission(cell.Type)
	var outdoor uint8

	neighbors := cur.Neighbors()
	if !opaque {
		if cell.IsSky() {
			outdoor = MaxLight
		}
		for _, n := range neighbors {
			if !n.IsValid() {
				continue
			}
			nc := n.Cell()
			if l.registry.IsOpaque(nc.Type) {
				continue
			}
			if v := nc.Indoor(); v > 0 && v-1 > indoor {
				indoor = v - 1
			}
			if v := nc.Outdoor(); v > 0 && v-1 > outdoor {
				outdoor = v - 1
			}
		}
	}

	if indoor == cell.Indoor() && outdoor == cell.Outdoor() {
		return
	}
	cell.setLight(indoor, outdoor)
	l.changed++
	cur.Chunk.meshDirty = true

	for _, n := range neighbors {
		if !n.IsValid() || l.registry.IsOpaque(n.Cell().Type) {
			continue
		}
		if n.Chunk != cur.Chunk {
			n.Chunk.meshDirty = true
		}
		l.Enqueue(n)
	}
}
