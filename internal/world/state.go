package world

import (
	"fmt"
	"sync/atomic"
)

// ChunkState - стадия жизненного цикла чанка
type ChunkState int32

const (
	StateMissing ChunkState = iota
	StateConstructing
	StateQueuedLoad
	StateQueuedGenerate
	StateLoading
	StateGenerating
	StateGenerateOrLoadComplete
	StateActive
	StateQueuedSave
	StateSaving
	StateSaveComplete
	StateDeconstructing
)

var stateNames = [...]string{
	StateMissing:                "missing",
	StateConstructing:           "constructing",
	StateQueuedLoad:             "queued_load",
	StateQueuedGenerate:         "queued_generate",
	StateLoading:                "loading",
	StateGenerating:             "generating",
	StateGenerateOrLoadComplete: "generate_or_load_complete",
	StateActive:                 "active",
	StateQueuedSave:             "queued_save",
	StateSaving:                 "saving",
	StateSaveComplete:           "save_complete",
	StateDeconstructing:         "deconstructing",
}

func (s ChunkState) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("ChunkState(%d)", int32(s))
}

// Разрешённые переходы. Отменённые задания уводят чанк в Deconstructing
// из любой промежуточной стадии загрузки или генерации.
var allowedTransitions = map[ChunkState][]ChunkState{
	StateMissing:                {StateConstructing},
	StateConstructing:           {StateQueuedLoad, StateQueuedGenerate},
	StateQueuedLoad:             {StateLoading, StateDeconstructing},
	StateQueuedGenerate:         {StateGenerating, StateDeconstructing},
	StateLoading:                {StateGenerateOrLoadComplete, StateDeconstructing},
	StateGenerating:             {StateGenerateOrLoadComplete, StateDeconstructing},
	StateGenerateOrLoadComplete: {StateActive, StateDeconstructing},
	StateActive:                 {StateQueuedSave, StateDeconstructing},
	StateQueuedSave:             {StateSaving},
	StateSaving:                 {StateSaveComplete},
	StateSaveComplete:           {StateDeconstructing},
}

// CanTransition проверяет, допустим ли переход from -> to
func CanTransition(from, to ChunkState) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// stateBox хранит стадию атомарно: её читают и главный поток, и воркеры
type stateBox struct {
	v atomic.Int32
}

func (b *stateBox) load() ChunkState {
	return ChunkState(b.v.Load())
}

// transition выполняет проверенный переход. Ошибка означает либо
// недопустимый переход, либо что текущая стадия уже не from.
func (b *stateBox) transition(from, to ChunkState) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("недопустимый переход состояния чанка %s -> %s", from, to)
	}
	if !b.v.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("переход %s -> %s отклонён: текущее состояние %s", from, to, b.load())
	}
	return nil
}
