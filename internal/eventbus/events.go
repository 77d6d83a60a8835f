package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Типы событий мира
const (
	EventChunkActivated = "chunk_activated"
	EventChunkUnloaded  = "chunk_unloaded"
	EventBlockChanged   = "block_changed"
)

// PriorityNormal - события мира; при переполнении буфера их можно потерять
const PriorityNormal = 3

// ChunkEvent - полезная нагрузка событий чанка
type ChunkEvent struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Origin string `json:"origin,omitempty"` // generate | load для активации
	Saved  bool   `json:"saved,omitempty"`  // выгрузка с сохранением
}

// BlockEvent - полезная нагрузка изменения блока
type BlockEvent struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Z       int    `json:"z"`
	From    string `json:"from"`
	To      string `json:"to"`
	Placing bool   `json:"placing"`
}

// NewEnvelope упаковывает полезную нагрузку в JSON-конверт
func NewEnvelope(source, eventType string, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("eventbus: сериализация %s: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Priority:  PriorityNormal,
		Payload:   data,
	}, nil
}

// Decode разбирает полезную нагрузку конверта
func (e *Envelope) Decode(out interface{}) error {
	return json.Unmarshal(e.Payload, out)
}
